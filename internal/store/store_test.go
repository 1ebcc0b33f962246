package store

import (
	"path/filepath"
	"testing"

	"github.com/daringdolphin/chemcheck/internal/model"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleQuestion(id string) model.Question {
	return model.Question{
		ID:        id,
		PromptImg: "prompts/" + id + ".png",
		Marks:     3,
		ModelAnswer: []model.ModelAnswerPart{
			{
				Part:         "a",
				QuestionText: "Explain why the rate of reaction increases with temperature.",
				Marks:        3,
				Answers: []model.AnswerPoint{
					{Text: "Particles gain kinetic energy", Keywords: []string{"kinetic energy"}, Marks: 1},
					{Text: "More frequent collisions", Keywords: []string{"collision frequency"}, Marks: 1},
					{Text: "More collisions exceed the activation energy", Keywords: []string{"activation energy"}, Marks: 1},
				},
			},
		},
		Syllabus: model.SyllabusReference{
			"a": {
				TopicsTested:     []string{"Rate of reaction"},
				SyllabusContent:  []string{"Effect of temperature on reaction rate"},
				LearningOutcomes: []string{"Explain rate changes using collision theory"},
			},
		},
	}
}

func TestInsertAndGetQuestion(t *testing.T) {
	s := testStore(t)

	want := sampleQuestion("q-rates-01")
	if err := s.InsertQuestion(want); err != nil {
		t.Fatalf("InsertQuestion() error = %v", err)
	}

	got, err := s.GetQuestion("q-rates-01")
	if err != nil {
		t.Fatalf("GetQuestion() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetQuestion() = nil, want question")
	}
	if got.ID != want.ID || got.Marks != want.Marks || got.PromptImg != want.PromptImg {
		t.Errorf("GetQuestion() = %+v, want %+v", got, want)
	}
	if len(got.ModelAnswer) != 1 || len(got.ModelAnswer[0].Answers) != 3 {
		t.Errorf("model answer round-trip lost points: %+v", got.ModelAnswer)
	}
	if got.ModelAnswer[0].Answers[2].Keywords[0] != "activation energy" {
		t.Errorf("keywords = %v", got.ModelAnswer[0].Answers[2].Keywords)
	}
	if len(got.Syllabus["a"].TopicsTested) != 1 || got.Syllabus["a"].TopicsTested[0] != "Rate of reaction" {
		t.Errorf("syllabus = %+v", got.Syllabus)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not populated")
	}
}

func TestGetQuestionNotFound(t *testing.T) {
	s := testStore(t)

	got, err := s.GetQuestion("missing")
	if err != nil {
		t.Fatalf("GetQuestion() error = %v", err)
	}
	if got != nil {
		t.Errorf("GetQuestion(missing) = %+v, want nil", got)
	}
}

func TestQuestionWithoutSyllabus(t *testing.T) {
	s := testStore(t)

	q := sampleQuestion("q-no-syllabus")
	q.Syllabus = nil
	if err := s.InsertQuestion(q); err != nil {
		t.Fatalf("InsertQuestion() error = %v", err)
	}

	got, err := s.GetQuestion("q-no-syllabus")
	if err != nil {
		t.Fatalf("GetQuestion() error = %v", err)
	}
	if got.Syllabus != nil {
		t.Errorf("Syllabus = %+v, want nil", got.Syllabus)
	}
}

func TestDuplicateQuestionRejected(t *testing.T) {
	s := testStore(t)

	if err := s.InsertQuestion(sampleQuestion("dup")); err != nil {
		t.Fatalf("first insert error = %v", err)
	}
	if err := s.InsertQuestion(sampleQuestion("dup")); err == nil {
		t.Error("duplicate insert succeeded, want primary key error")
	}
}

func TestReferenceImagesOrderedByPosition(t *testing.T) {
	s := testStore(t)

	if err := s.InsertQuestion(sampleQuestion("q1")); err != nil {
		t.Fatalf("InsertQuestion() error = %v", err)
	}
	// Insert out of order; reads must come back sorted by position.
	for _, ref := range []model.ReferenceImageRef{
		{QuestionID: "q1", ImgKey: "answers/q1-page2.jpg", Position: 1},
		{QuestionID: "q1", ImgKey: "answers/q1-page1.jpg", Position: 0},
		{QuestionID: "q1", ImgKey: "answers/q1-page3.jpg", Position: 2},
	} {
		if err := s.InsertReferenceImage(ref); err != nil {
			t.Fatalf("InsertReferenceImage() error = %v", err)
		}
	}

	refs, err := s.GetReferenceImages("q1")
	if err != nil {
		t.Fatalf("GetReferenceImages() error = %v", err)
	}
	want := []string{"answers/q1-page1.jpg", "answers/q1-page2.jpg", "answers/q1-page3.jpg"}
	if len(refs) != len(want) {
		t.Fatalf("got %d rows, want %d", len(refs), len(want))
	}
	for i, key := range want {
		if refs[i].ImgKey != key || refs[i].Position != i {
			t.Errorf("refs[%d] = %+v, want key %s at position %d", i, refs[i], key, i)
		}
	}
}

func TestGetReferenceImagesEmpty(t *testing.T) {
	s := testStore(t)

	refs, err := s.GetReferenceImages("nothing")
	if err != nil {
		t.Fatalf("GetReferenceImages() error = %v", err)
	}
	if len(refs) != 0 {
		t.Errorf("got %d rows, want 0", len(refs))
	}
}

func TestDeleteQuestionCascades(t *testing.T) {
	s := testStore(t)

	if err := s.InsertQuestion(sampleQuestion("q1")); err != nil {
		t.Fatalf("InsertQuestion() error = %v", err)
	}
	if err := s.InsertReferenceImage(model.ReferenceImageRef{QuestionID: "q1", ImgKey: "answers/q1.jpg", Position: 0}); err != nil {
		t.Fatalf("InsertReferenceImage() error = %v", err)
	}

	if err := s.DeleteQuestion("q1"); err != nil {
		t.Fatalf("DeleteQuestion() error = %v", err)
	}

	got, err := s.GetQuestion("q1")
	if err != nil || got != nil {
		t.Errorf("GetQuestion after delete = %+v, %v", got, err)
	}
	refs, err := s.GetReferenceImages("q1")
	if err != nil {
		t.Fatalf("GetReferenceImages() error = %v", err)
	}
	if len(refs) != 0 {
		t.Errorf("reference rows survived delete: %+v", refs)
	}
}

func TestImportedFileHash(t *testing.T) {
	s := testStore(t)

	hash, err := s.GetImportedFileHash("questions/chem.json")
	if err != nil || hash != "" {
		t.Fatalf("GetImportedFileHash() = %q, %v; want empty", hash, err)
	}

	if err := s.SetImportedFileHash("questions/chem.json", "abc123"); err != nil {
		t.Fatalf("SetImportedFileHash() error = %v", err)
	}
	hash, err = s.GetImportedFileHash("questions/chem.json")
	if err != nil || hash != "abc123" {
		t.Errorf("GetImportedFileHash() = %q, %v; want abc123", hash, err)
	}

	// Re-recording the same path replaces the hash.
	if err := s.SetImportedFileHash("questions/chem.json", "def456"); err != nil {
		t.Fatalf("SetImportedFileHash() update error = %v", err)
	}
	hash, _ = s.GetImportedFileHash("questions/chem.json")
	if hash != "def456" {
		t.Errorf("GetImportedFileHash() after update = %q, want def456", hash)
	}
}

func TestQuestionCount(t *testing.T) {
	s := testStore(t)

	n, err := s.QuestionCount()
	if err != nil || n != 0 {
		t.Fatalf("QuestionCount() = %d, %v; want 0", n, err)
	}
	if err := s.InsertQuestion(sampleQuestion("q1")); err != nil {
		t.Fatalf("InsertQuestion() error = %v", err)
	}
	if err := s.InsertQuestion(sampleQuestion("q2")); err != nil {
		t.Fatalf("InsertQuestion() error = %v", err)
	}
	n, err = s.QuestionCount()
	if err != nil || n != 2 {
		t.Errorf("QuestionCount() = %d, %v; want 2", n, err)
	}
}
