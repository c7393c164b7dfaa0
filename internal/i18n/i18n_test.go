package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	loc := NewLocalizer(lang)
	return WithLocalizer(context.Background(), loc)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "ErrNotFound")
	if got != "Not found." {
		t.Errorf("T(ErrNotFound) = %q, want 'Not found.'", got)
	}

	got = T(ctx, "LoginError")
	if got != "Invalid email or password." {
		t.Errorf("T(LoginError) = %q, want 'Invalid email or password.'", got)
	}
}

func TestTranslateSpanish(t *testing.T) {
	ctx := initLang(t, "es")

	got := T(ctx, "ErrNotFound")
	if got != "No encontrado." {
		t.Errorf("T(ErrNotFound) = %q, want 'No encontrado.'", got)
	}

	got = T(ctx, "LoginError")
	if got != "Correo o contraseña incorrectos." {
		t.Errorf("T(LoginError) = %q, want 'Correo o contraseña incorrectos.'", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got1 := Tp(ctx, "QuestionsImported", 1)
	if got1 != "1 question imported." {
		t.Errorf("Tp(QuestionsImported, 1) = %q, want '1 question imported.'", got1)
	}

	got5 := Tp(ctx, "QuestionsImported", 5)
	if got5 != "5 questions imported." {
		t.Errorf("Tp(QuestionsImported, 5) = %q, want '5 questions imported.'", got5)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "ExamSaved", map[string]any{"Title": "Midterm"})
	if got != `Exam "Midterm" saved.` {
		t.Errorf("Td(ExamSaved, Title=Midterm) = %q, want 'Exam \"Midterm\" saved.'", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "NonExistentKey")
	if got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestMiddlewareHonorsAcceptLanguage(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}

	var got string
	h := Middleware("en")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = T(r.Context(), "ErrNotFound")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "es")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != "No encontrado." {
		t.Errorf("expected Spanish translation, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != "Not found." {
		t.Errorf("expected English fallback, got %q", got)
	}
}
