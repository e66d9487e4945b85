package templates

import (
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp"
	"gopkg.in/yaml.v3"
)

// ManifestFile optionally sits at the language root and overrides label text.
const ManifestFile = "manifest.yaml"

var defaultAliases = map[string]string{
	"colon":  ":",
	"slash":  "/",
	"paused": "PAUSED",
	"c0":     "0/5",
	"c1":     "1/5",
	"c2":     "2/5",
	"c3":     "3/5",
	"c4":     "4/5",
	"c5":     "5/5",
}

// Manifest maps template keys to the text they render as.
type Manifest struct {
	Aliases map[string]string `yaml:"aliases"`
}

type poolKey struct{ category, variant string }

// Library indexes templates by semantic key and color variant, and by
// category pool for the matchers. It is read-only after loading.
type Library struct {
	byKey   map[string]map[string][]*Template
	pools   map[poolKey][]*Template
	aliases map[string]string
	count   int
}

// NewLibrary returns an empty library using the default aliases.
func NewLibrary() *Library {
	l := &Library{
		byKey:   map[string]map[string][]*Template{},
		pools:   map[poolKey][]*Template{},
		aliases: map[string]string{},
	}
	for k, v := range defaultAliases {
		l.aliases[k] = v
	}
	return l
}

// NewTemplate binarizes img into a template. Icon categories also keep
// their grayscale plane.
func (l *Library) NewTemplate(key, category, variant string, img image.Image) *Template {
	t := &Template{
		Key:      key,
		Text:     l.text(key, category),
		Category: category,
		Variant:  variant,
		Binary:   binarize(img),
	}
	if IsIcon(category) {
		t.Gray = grayscale(img)
	}
	return t
}

func (l *Library) text(key, category string) string {
	if s, ok := l.aliases[key]; ok {
		return s
	}
	if category == CategoryPause {
		return strings.ToUpper(key)
	}
	return key
}

// Add indexes a template.
func (l *Library) Add(t *Template) {
	if t == nil || t.Binary.Empty() {
		return
	}
	variants := l.byKey[t.Key]
	if variants == nil {
		variants = map[string][]*Template{}
		l.byKey[t.Key] = variants
	}
	variants[t.Variant] = append(variants[t.Variant], t)
	pk := poolKey{t.Category, t.Variant}
	l.pools[pk] = append(l.pools[pk], t)
	l.count++
}

// Len returns the number of loaded templates.
func (l *Library) Len() int { return l.count }

// Lookup returns the templates for key in the given color variant.
func (l *Library) Lookup(key, variant string) []*Template {
	return l.byKey[key][variant]
}

// Keys returns every loaded key in sorted order.
func (l *Library) Keys() []string {
	keys := make([]string, 0, len(l.byKey))
	for k := range l.byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Pool returns the templates of a category for a color variant, falling
// back to the color-agnostic pool when the variant has none.
func (l *Library) Pool(category, variant string) []*Template {
	if p := l.pools[poolKey{category, variant}]; len(p) > 0 {
		return p
	}
	return l.pools[poolKey{category, ""}]
}

// Load reads templates from root/lang. A missing directory or an empty tree
// is logged and yields an empty library rather than an error.
func Load(root, lang string, logger *slog.Logger) (*Library, error) {
	dir := filepath.Join(root, lang)
	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		if logger != nil {
			logger.Warn("template directory missing", "dir", dir, "error", err)
		}
		return NewLibrary(), nil
	}
	return LoadFS(os.DirFS(dir), logger)
}

// LoadFS reads templates laid out as <category>[.<variant>]/<key>[_suffix].png
// (or .bmp), with an optional manifest.yaml at the top level.
func LoadFS(fsys fs.FS, logger *slog.Logger) (*Library, error) {
	lib := NewLibrary()
	if err := lib.loadManifest(fsys); err != nil && logger != nil {
		logger.Warn("template manifest ignored", "error", err)
	}
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(path.Ext(p))
		if ext != ".png" && ext != ".bmp" {
			return nil
		}
		dir := path.Dir(p)
		if dir == "." || strings.Contains(dir, "/") {
			return nil
		}
		category, variant, _ := strings.Cut(dir, ".")
		key, _, _ := strings.Cut(strings.TrimSuffix(path.Base(p), path.Ext(p)), "_")
		if key == "" {
			return nil
		}
		img, err := decode(fsys, p)
		if err != nil {
			if logger != nil {
				logger.Warn("template skipped", "file", p, "error", err)
			}
			return nil
		}
		lib.Add(lib.NewTemplate(strings.ToLower(key), category, variant, img))
		return nil
	})
	if err != nil {
		return lib, fmt.Errorf("templates: walk: %w", err)
	}
	if lib.Len() == 0 && logger != nil {
		logger.Warn("no templates loaded; recognition will yield empty reads")
	} else if logger != nil {
		logger.Info("templates loaded", "count", lib.Len(), "keys", len(lib.byKey))
	}
	return lib, nil
}

func (l *Library) loadManifest(fsys fs.FS) error {
	raw, err := fs.ReadFile(fsys, ManifestFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("templates: decode manifest: %w", err)
	}
	for k, v := range m.Aliases {
		l.aliases[strings.ToLower(k)] = v
	}
	return nil
}

func decode(fsys fs.FS, p string) (image.Image, error) {
	f, err := fsys.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, errors.New("empty image")
	}
	return img, nil
}
