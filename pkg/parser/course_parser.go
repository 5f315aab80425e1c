// Package parser reads course exports from disk: JSON files in the persisted course
// shape and plain folders of content files.
package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/NeroQue/onboarding-flow-backend/internal/models"
	"github.com/NeroQue/onboarding-flow-backend/pkg/util"
)

// maxSOPBytes limits how much of a text file is inlined into an SOP step
const maxSOPBytes = 1 << 20

// FileInfo holds basic file/directory info
type FileInfo struct {
	Path         string `json:"path"`          // full path
	RelativePath string `json:"relative_path"` // relative to base dir
	Name         string `json:"name"`          // just the filename
	Size         int64  `json:"size"`          // size in bytes
	IsDir        bool   `json:"is_dir"`        // folder of content files
	Extension    string `json:"extension"`     // file extension
}

// CourseParser turns exports under BasePath into courses
type CourseParser struct {
	BasePath string // where exports live
	newID    util.IDFunc
}

// NewCourseParser creates parser with base directory
func NewCourseParser(basePath string) *CourseParser {
	return &CourseParser{BasePath: basePath, newID: util.Prefixed(util.PrefixStep)}
}

// ValidateBasePath checks if the export directory exists and we can read it
func (p *CourseParser) ValidateBasePath() error {
	info, err := os.Stat(p.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("import directory does not exist: %s", p.BasePath)
		}
		return fmt.Errorf("error accessing import directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("import path is not a directory: %s", p.BasePath)
	}

	f, err := os.Open(p.BasePath)
	if err != nil {
		return fmt.Errorf("cannot open import directory: %w", err)
	}
	defer f.Close()

	// try reading one entry to verify access
	if _, err = f.Readdir(1); err != nil && err != io.EOF {
		return fmt.Errorf("cannot read contents of import directory: %w", err)
	}
	return nil
}

// ListExports shows the JSON exports and content folders available to import
func (p *CourseParser) ListExports() ([]FileInfo, error) {
	entries, err := os.ReadDir(p.BasePath)
	if err != nil {
		return nil, fmt.Errorf("error reading import directory: %w", err)
	}

	var out []FileInfo
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !entry.IsDir() && ext != ".json" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue // skip if we can't get info
		}
		out = append(out, FileInfo{
			Path:         filepath.Join(p.BasePath, entry.Name()),
			RelativePath: entry.Name(),
			Name:         entry.Name(),
			Size:         info.Size(),
			IsDir:        entry.IsDir(),
			Extension:    ext,
		})
	}
	return out, nil
}

// Parse reads one export, relative to BasePath
func (p *CourseParser) Parse(relativePath string) ([]models.Course, error) {
	full := util.ResolveImportPath(p.BasePath, relativePath)
	if full == "" {
		return nil, fmt.Errorf("path escapes import directory: %s", relativePath)
	}
	info, err := os.Stat(full)
	if err != nil {
		return nil, fmt.Errorf("error accessing export: %w", err)
	}
	if info.IsDir() {
		c, err := p.ParseCourseFolder(full)
		if err != nil {
			return nil, err
		}
		return []models.Course{c}, nil
	}
	return p.ParseExportFile(full)
}

// ParseExportFile decodes a JSON file holding one course or an array of courses.
// Steps in the legacy flat shape decode through the regular Step decoder.
func (p *CourseParser) ParseExportFile(path string) ([]models.Course, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading export: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("export is empty: %s", filepath.Base(path))
	}

	var courses []models.Course
	if data[0] == '[' {
		if err := json.Unmarshal(data, &courses); err != nil {
			return nil, fmt.Errorf("error decoding %s: %w", filepath.Base(path), err)
		}
	} else {
		var c models.Course
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("error decoding %s: %w", filepath.Base(path), err)
		}
		courses = []models.Course{c}
	}

	for i := range courses {
		if strings.TrimSpace(courses[i].Name) == "" {
			courses[i].Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
	}
	return courses, nil
}

// ParseCourseFolder converts a folder of content files into a course, one step per
// file in path order. The course id is left empty for the caller to assign.
func (p *CourseParser) ParseCourseFolder(folderPath string) (models.Course, error) {
	info, err := os.Stat(folderPath)
	if err != nil {
		return models.Course{}, fmt.Errorf("error accessing course folder: %w", err)
	}
	if !info.IsDir() {
		return models.Course{}, fmt.Errorf("specified path is not a directory: %s", folderPath)
	}

	var files []string
	err = filepath.WalkDir(folderPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && path != folderPath {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return models.Course{}, fmt.Errorf("error scanning course folder: %w", err)
	}
	sort.Strings(files)

	course := models.Course{Name: filepath.Base(folderPath)}
	for _, path := range files {
		step, err := p.stepForFile(path)
		if err != nil {
			return models.Course{}, err
		}
		course.Steps = append(course.Steps, step)
	}
	return course, nil
}

// stepForFile picks the step kind from the file's content type
func (p *CourseParser) stepForFile(path string) (models.Step, error) {
	name := filepath.Base(path)
	rel, err := filepath.Rel(p.BasePath, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)

	step := models.Step{
		ID:    p.newID(),
		Title: strings.TrimSuffix(name, filepath.Ext(name)),
	}

	switch DetermineContentType(name) {
	case "video":
		step.Description = fmt.Sprintf("Watch %s", name)
		step.Body = models.VideoBody{MediaType: models.MediaUpload, VideoURL: rel}
	case "image":
		step.Body = models.ImageBody{MediaType: models.MediaUpload, ImageURL: rel}
	case "text":
		f, err := os.Open(path)
		if err != nil {
			return models.Step{}, fmt.Errorf("error reading %s: %w", name, err)
		}
		defer f.Close()
		content, err := io.ReadAll(io.LimitReader(f, maxSOPBytes))
		if err != nil {
			return models.Step{}, fmt.Errorf("error reading %s: %w", name, err)
		}
		step.Body = models.SOPBody{Content: string(content)}
	default:
		step.Description = fmt.Sprintf("Download %s", name)
		step.Body = models.DownloadBody{FileURL: rel, FileName: name}
	}
	return step, nil
}

// DetermineContentType figures out what kind of file this is based on extension
func DetermineContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mp4", ".avi", ".mov", ".mkv", ".wmv", ".webm":
		return "video"
	case ".pdf":
		return "pdf"
	case ".md", ".txt":
		return "text"
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return "image"
	case ".ppt", ".pptx":
		return "presentation"
	case ".doc", ".docx":
		return "document"
	case ".xls", ".xlsx":
		return "spreadsheet"
	default:
		return "unknown"
	}
}
