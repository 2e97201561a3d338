package document

import (
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"romaneio-backend/internal/models"
)

type fakeRenderer struct {
	data []byte
	err  error
}

func (f *fakeRenderer) Render(run models.PrintRun, items []models.PrintRunItem) ([]byte, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return f.data, ".xlsx", nil
}

type fakeStorage struct {
	saved map[string][]byte
	err   error
}

func (f *fakeStorage) Save(name string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.saved == nil {
		f.saved = make(map[string][]byte)
	}
	f.saved[name] = data
	return "/docs/" + name, nil
}

func TestRunnerGeneratesDocument(t *testing.T) {
	tracker := NewTracker()
	storage := &fakeStorage{}
	runner := NewRunner(&fakeRenderer{data: []byte("xlsx")}, storage, tracker, zerolog.Nop())

	run := models.PrintRun{ID: "ROM-000001", CreatedBy: "maria", ItemCount: 2}
	runner.Schedule(run, []models.PrintRunItem{{Code: "A100"}, {Code: "B200"}})
	runner.Wait()

	st, ok := tracker.Get("ROM-000001")
	if !ok {
		t.Fatal("no status tracked for run")
	}
	if st.State != StateDone {
		t.Fatalf("state = %q, want %q (detail: %s)", st.State, StateDone, st.ErrorDetail)
	}
	if st.Progress != 100 {
		t.Errorf("progress = %d, want 100", st.Progress)
	}
	if !strings.HasPrefix(st.File, "/docs/ROM-000001_") || !strings.HasSuffix(st.File, ".xlsx") {
		t.Errorf("file = %q, want /docs/ROM-000001_<ts>.xlsx", st.File)
	}
	if len(storage.saved) != 1 {
		t.Errorf("saved %d documents, want 1", len(storage.saved))
	}
}

func TestRunnerTracksRenderFailure(t *testing.T) {
	tracker := NewTracker()
	runner := NewRunner(&fakeRenderer{err: errors.New("corrupt template")}, &fakeStorage{}, tracker, zerolog.Nop())

	runner.Schedule(models.PrintRun{ID: "ROM-000002"}, nil)
	runner.Wait()

	st, _ := tracker.Get("ROM-000002")
	if st.State != StateError {
		t.Fatalf("state = %q, want %q", st.State, StateError)
	}
	if st.ErrorDetail != "corrupt template" {
		t.Errorf("detail = %q", st.ErrorDetail)
	}
}

func TestRunnerTracksStorageFailure(t *testing.T) {
	tracker := NewTracker()
	runner := NewRunner(&fakeRenderer{data: []byte("x")}, &fakeStorage{err: errors.New("disk full")}, tracker, zerolog.Nop())

	runner.Schedule(models.PrintRun{ID: "ROM-000003"}, nil)
	runner.Wait()

	st, _ := tracker.Get("ROM-000003")
	if st.State != StateError {
		t.Fatalf("state = %q, want %q", st.State, StateError)
	}
}

func TestTrackerUnknownRun(t *testing.T) {
	tracker := NewTracker()
	if _, ok := tracker.Get("ROM-999999"); ok {
		t.Error("unknown run reported a status")
	}
}

func TestExcelRendererProducesWorkbook(t *testing.T) {
	run := models.PrintRun{ID: "ROM-000010", CreatedBy: "joao", ItemCount: 1, Notes: "urgent"}
	items := []models.PrintRunItem{{
		Code: "A100", Description: "Bolt M8", Unit: "UN", Quantity: 40, Location: "A-01-03",
	}}

	data, ext, err := (&ExcelRenderer{}).Render(run, items)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if ext != ".xlsx" {
		t.Errorf("ext = %q, want .xlsx", ext)
	}
	if len(data) == 0 {
		t.Error("rendered document is empty")
	}
}
