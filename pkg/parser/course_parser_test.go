package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/NeroQue/onboarding-flow-backend/internal/models"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestListExports(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sales.json"), `{}`)
	writeFile(t, filepath.Join(dir, "notes.txt"), `x`)
	writeFile(t, filepath.Join(dir, "security", "rules.md"), `# Rules`)
	writeFile(t, filepath.Join(dir, ".hidden.json"), `{}`)

	p := NewCourseParser(dir)
	if err := p.ValidateBasePath(); err != nil {
		t.Fatalf("ValidateBasePath: %v", err)
	}
	got, err := p.ListExports()
	if err != nil {
		t.Fatalf("ListExports: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListExports = %+v, want sales.json and security/", got)
	}
}

func TestParseLegacyExportFile(t *testing.T) {
	dir := t.TempDir()
	legacy := `[{"id":"demo-1","name":"Welcome","steps":[
		{"id":"s1","title":"Meet","description":"Hi","type":"video","videoUrl":"abc","actionLabel":"stale","isCompleted":true},
		{"id":"s2","title":"Link","description":"","type":"link","linkedCourseId":"c2"}
	]}]`
	writeFile(t, filepath.Join(dir, "export.json"), legacy)

	courses, err := NewCourseParser(dir).Parse("export.json")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(courses) != 1 || len(courses[0].Steps) != 2 {
		t.Fatalf("courses = %+v", courses)
	}
	video, ok := courses[0].Steps[0].Body.(models.VideoBody)
	if !ok || video.VideoURL != "abc" {
		t.Fatalf("first step body = %#v", courses[0].Steps[0].Body)
	}
	if rec := courses[0].Steps[0].Record(); rec.ActionLabel != "" {
		t.Errorf("inactive field carried into canonical form: %q", rec.ActionLabel)
	}
}

func TestParseSingleCourseFileNamesFromFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "hr-basics.json"), `{"id":"c9","steps":[]}`)

	courses, err := NewCourseParser(dir).Parse("hr-basics.json")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if courses[0].Name != "hr-basics" {
		t.Errorf("Name = %q", courses[0].Name)
	}
}

func TestParseCourseFolder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "it", "01-intro.mp4"), "video")
	writeFile(t, filepath.Join(dir, "it", "02-policy.md"), "# Policy")
	writeFile(t, filepath.Join(dir, "it", "03-laptop.pdf"), "pdf")
	writeFile(t, filepath.Join(dir, "it", "extra", "04-diagram.png"), "png")

	courses, err := NewCourseParser(dir).Parse("it")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	c := courses[0]
	if c.Name != "it" || len(c.Steps) != 4 {
		t.Fatalf("course = %+v", c)
	}

	want := []models.StepType{models.StepVideo, models.StepSOP, models.StepDownload, models.StepImage}
	for i, s := range c.Steps {
		if s.Type() != want[i] {
			t.Errorf("step %d (%s) type = %s, want %s", i, s.Title, s.Type(), want[i])
		}
	}
	if sop := c.Steps[1].Body.(models.SOPBody); sop.Content != "# Policy" {
		t.Errorf("SOP content = %q", sop.Content)
	}
	if dl := c.Steps[2].Body.(models.DownloadBody); dl.FileURL != "it/03-laptop.pdf" || dl.FileName != "03-laptop.pdf" {
		t.Errorf("download body = %+v", dl)
	}
}

func TestParseRejectsEscapingPath(t *testing.T) {
	if _, err := NewCourseParser(t.TempDir()).Parse("../etc/passwd"); err == nil {
		t.Fatal("expected error for path outside the import directory")
	}
}

func TestDetermineContentType(t *testing.T) {
	tests := map[string]string{
		"a.MP4": "video", "b.pdf": "pdf", "c.md": "text", "d.jpeg": "image",
		"e.pptx": "presentation", "f.docx": "document", "g.xlsx": "spreadsheet", "h.bin": "unknown",
	}
	for name, want := range tests {
		if got := DetermineContentType(name); got != want {
			t.Errorf("DetermineContentType(%q) = %q, want %q", name, got, want)
		}
	}
}
