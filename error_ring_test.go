package refract

import (
	"errors"
	"testing"
)

func TestErrorRing_NilSafe(t *testing.T) {
	var r *errorRing

	// All operations should be safe on nil
	r.push(1, errors.New("test"))
	r.clear()

	if r.all() != nil {
		t.Error("expected nil from nil ring")
	}
}

func TestErrorRing_ZeroSize(t *testing.T) {
	r := newErrorRing(0)
	if r != nil {
		t.Error("expected nil ring for size 0")
	}
}

func TestErrorRing_NegativeSize(t *testing.T) {
	r := newErrorRing(-1)
	if r != nil {
		t.Error("expected nil ring for negative size")
	}
}

func TestErrorRing_SingleError(t *testing.T) {
	r := newErrorRing(3)

	err := errors.New("error1")
	r.push(4, err)

	errs := r.all()
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
	if errs[0].Error() != "error1" {
		t.Error("expected same error message")
	}
	if errs[0].Revision != 4 {
		t.Errorf("expected revision 4, got %d", errs[0].Revision)
	}
	if !errors.Is(errs[0], err) {
		t.Error("expected Unwrap to expose the underlying error")
	}
}

func TestErrorRing_FillsWithoutWrapping(t *testing.T) {
	r := newErrorRing(3)

	r.push(1, errors.New("error1"))
	r.push(2, errors.New("error2"))
	r.push(3, errors.New("error3"))

	errs := r.all()
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %d", len(errs))
	}

	// Oldest first
	if errs[0].Revision != 1 {
		t.Error("expected revision 1 first")
	}
	if errs[1].Revision != 2 {
		t.Error("expected revision 2 second")
	}
	if errs[2].Revision != 3 {
		t.Error("expected revision 3 third")
	}
}

func TestErrorRing_WrapsAndEvictsOldest(t *testing.T) {
	r := newErrorRing(3)

	r.push(1, errors.New("error1"))
	r.push(2, errors.New("error2"))
	r.push(3, errors.New("error3"))
	r.push(4, errors.New("error4")) // Should evict revision 1

	errs := r.all()
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %d", len(errs))
	}

	if errs[0].Revision != 2 {
		t.Error("expected revision 2 first after wrap")
	}
	if errs[1].Revision != 3 {
		t.Error("expected revision 3 second")
	}
	if errs[2].Revision != 4 {
		t.Error("expected revision 4 third")
	}
}

func TestErrorRing_MultipleWraps(t *testing.T) {
	r := newErrorRing(2)

	for i := 0; i < 10; i++ {
		r.push(uint64(i), errors.New("error"))
	}

	errs := r.all()
	if len(errs) != 2 {
		t.Errorf("expected 2 errors after multiple wraps, got %d", len(errs))
	}
}

func TestErrorRing_Clear(t *testing.T) {
	r := newErrorRing(3)

	r.push(1, errors.New("error1"))
	r.push(2, errors.New("error2"))

	r.clear()

	errs := r.all()
	if errs != nil {
		t.Errorf("expected nil after clear, got %d errors", len(errs))
	}
}
