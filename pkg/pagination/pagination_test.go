package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/carewell/foundation-backend/pkg/errors"
)

func TestCursorRoundTrip(t *testing.T) {
	t.Parallel()

	want := Cursor{CreatedAt: time.Now().UTC().Truncate(time.Microsecond), ID: uuid.New()}
	got, err := ParseCursor(EncodeCursor(want))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) || got.ID != want.ID {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
	}
}

func TestParseCursorEmptyMeansFirstPage(t *testing.T) {
	t.Parallel()

	got, err := ParseCursor("  ")
	if err != nil || got != nil {
		t.Fatalf("expected nil cursor and nil error, got %v / %v", got, err)
	}
}

func TestParseCursorMalformedIsClientFault(t *testing.T) {
	t.Parallel()

	for _, value := range []string{"not base64!!", "bm8gcGlwZQ==", "MjAyNHwxMjM="} {
		_, err := ParseCursor(value)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("cursor %q: expected validation error, got %v", value, err)
		}
	}
}

func TestNormalizeLimitClamps(t *testing.T) {
	t.Parallel()

	if got := NormalizeLimit(0); got != DefaultLimit {
		t.Fatalf("expected default %d, got %d", DefaultLimit, got)
	}
	if got := NormalizeLimit(1000); got != MaxLimit {
		t.Fatalf("expected cap %d, got %d", MaxLimit, got)
	}
	if got := LimitWithBuffer(10); got != 11 {
		t.Fatalf("expected sentinel row on top of the limit, got %d", got)
	}
}
