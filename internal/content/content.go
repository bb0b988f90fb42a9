// Package content loads the editable homepage sections from markdown files with YAML front matter.
package content

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Hero is the landing banner.
type Hero struct {
	Title    string `yaml:"title" json:"title"`
	Subtitle string `yaml:"subtitle" json:"subtitle"`
	Logo     string `yaml:"logo" json:"logo"`
}

// About describes the organisation. DescriptionHTML is rendered from Description.
type About struct {
	Title           string `yaml:"title" json:"title"`
	Description     string `yaml:"description" json:"description"`
	DescriptionHTML string `yaml:"-" json:"description_html"`
}

// Footer carries the legal and contact details.
type Footer struct {
	OrgName     string `yaml:"orgName" json:"orgName"`
	Slogan      string `yaml:"slogan" json:"slogan"`
	License     string `yaml:"license" json:"license"`
	LicenseDate string `yaml:"licenseDate" json:"licenseDate"`
	Location    string `yaml:"location" json:"location"`
	Whatsapp    string `yaml:"whatsapp" json:"whatsapp"`
	Email       string `yaml:"email" json:"email,omitempty"`
}

// Homepage groups every section.
type Homepage struct {
	Hero   Hero   `json:"hero"`
	About  About  `json:"about"`
	Footer Footer `json:"footer"`
}

// Defaults is served for any section whose file is missing or unreadable.
func Defaults() Homepage {
	return Homepage{
		Hero: Hero{
			Title:    "ONG A.A.S",
			Subtitle: "جمعية مدنية للتوعية التأمينية ومواكبة المطالبات",
			Logo:     "https://i.postimg.cc/mkjyN04T/5.png",
		},
		About: About{
			Title:       "من نحن",
			Description: "نحن جمعية مدنية غير ربحية مكرسة لنشر الوعي التأميني وحماية حقوق المؤمنين ومساعدتهم في الحصول على تعويضاتهم المستحقة.",
		},
		Footer: Footer{
			OrgName:     "جمعية التأمين للتوعية",
			Slogan:      "التأمين وعي… والتعويض حق.",
			License:     "FA010000360307202511232",
			LicenseDate: "2025-07-04",
			Location:    "نواكشوط – موريتانيا",
			Whatsapp:    "+222 34 14 14 97",
			Email:       "info@ong-aas.mr",
		},
	}
}

var errNoFrontMatter = errors.New("no front matter")

// Raw HTML in markdown is escaped since WithUnsafe is not set.
var renderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// Loader reads section files from a directory.
type Loader struct {
	dir    string
	logger *zap.Logger
}

// NewLoader returns a loader for dir.
func NewLoader(dir string, logger *zap.Logger) *Loader {
	return &Loader{dir: dir, logger: logger}
}

// Load reads hero.md, about.md and footer.md. Fields present in a file override the defaults.
func (l *Loader) Load() Homepage {
	page := Defaults()
	section(l, "hero.md", &page.Hero)
	section(l, "about.md", &page.About)
	section(l, "footer.md", &page.Footer)
	page.About.Description = strings.TrimSpace(page.About.Description)
	page.About.DescriptionHTML = render(page.About.Description)
	return page
}

func section[T any](l *Loader, name string, into *T) {
	raw, err := os.ReadFile(filepath.Join(l.dir, name))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			l.logger.Warn("read homepage section", zap.String("file", name), zap.Error(err))
		}
		return
	}
	front, err := frontMatter(raw)
	if err != nil {
		l.logger.Debug("homepage section without front matter", zap.String("file", name))
		return
	}
	// Decode into a copy so a half-parsed file cannot clobber defaults.
	tmp := *into
	if err := yaml.Unmarshal(front, &tmp); err != nil {
		l.logger.Warn("parse homepage section", zap.String("file", name), zap.Error(err))
		return
	}
	*into = tmp
}

func frontMatter(raw []byte) ([]byte, error) {
	text := strings.ReplaceAll(string(raw), "\r\n", "\n")
	if !strings.HasPrefix(text, "---\n") {
		return nil, errNoFrontMatter
	}
	rest := text[len("---\n"):]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return nil, errNoFrontMatter
	}
	return []byte(rest[:end]), nil
}

func render(markdown string) string {
	var buf bytes.Buffer
	if err := renderer.Convert([]byte(markdown), &buf); err != nil {
		return ""
	}
	return buf.String()
}
