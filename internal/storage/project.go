/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"gonovel/internal/domain"
)

const (
	ManifestFileName   = "novel.json"
	CharactersFileName = "characters.yaml"
	BackupsDirName     = "backups"
	ScriptsDirName     = "scripts"
	ResourcesDirName   = "Resources"
	CommandsDirName    = "commands"
	FontsDirName       = "Fonts"
)

// ErrInvalidManifest is returned when novel.json does not match the manifest schema.
var ErrInvalidManifest = errors.New("invalid manifest")

//go:embed novel.schema.json
var manifestSchema []byte

var standardSubDirs = []string{
	ScriptsDirName,
	ResourcesDirName,
	filepath.Join(ResourcesDirName, "Characters"),
	filepath.Join(ResourcesDirName, "Graphics"),
	filepath.Join(ResourcesDirName, FontsDirName),
	CommandsDirName,
	BackupsDirName,
}

const charactersTemplate = `# Character configurations, looked up by casting name.
# kind: text | sprite | spritesheet | live2d | model3d
characters: []
`

// ProjectHandle keeps track of a novel loaded from or saved to disk.
// Root is the project directory containing novel.json and the standard folders.
type ProjectHandle struct {
	Root         string
	ManifestPath string
	Novel        domain.Novel
}

func (ph *ProjectHandle) ScriptsDir() string { return filepath.Join(ph.Root, ScriptsDirName) }

// ResourcesDir is the asset store root.
func (ph *ProjectHandle) ResourcesDir() string { return filepath.Join(ph.Root, ResourcesDirName) }

// CommandsDir holds the Lua command scripts.
func (ph *ProjectHandle) CommandsDir() string { return filepath.Join(ph.Root, CommandsDirName) }

func (ph *ProjectHandle) CharactersPath() string { return filepath.Join(ph.Root, CharactersFileName) }

// InitProject creates a project directory at root, scaffolds the standard
// subfolders, writes the manifest transactionally and seeds an empty start script
// and character file when they do not exist yet.
func InitProject(root string, novel domain.Novel) (*ProjectHandle, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create project root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return nil, fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	if strings.TrimSpace(novel.Start) == "" {
		novel.Start = domain.DefaultStart
	}
	ph := &ProjectHandle{
		Root:         root,
		ManifestPath: filepath.Join(root, ManifestFileName),
		Novel:        novel,
	}
	if err := Save(ph); err != nil {
		return nil, err
	}
	if err := writeIfMissing(ph.CharactersPath(), []byte(charactersTemplate)); err != nil {
		return nil, fmt.Errorf("seed characters: %w", err)
	}
	if err := writeIfMissing(ScriptPath(ph, novel.Start), nil); err != nil {
		return nil, fmt.Errorf("seed start script: %w", err)
	}
	return ph, nil
}

// Open loads an existing project from root. If the manifest cannot be read,
// parsed or validated, the latest backup is tried.
func Open(root string) (*ProjectHandle, error) {
	mpath := filepath.Join(root, ManifestFileName)
	n, err := readManifest(mpath)
	if err != nil {
		n, berr := openFromLatestBackup(root)
		if berr != nil {
			return nil, fmt.Errorf("open manifest: %w; backup attempt: %v", err, berr)
		}
		return &ProjectHandle{Root: root, ManifestPath: mpath, Novel: *n}, nil
	}
	return &ProjectHandle{Root: root, ManifestPath: mpath, Novel: *n}, nil
}

func readManifest(path string) (*domain.Novel, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := ValidateManifest(b); err != nil {
		return nil, err
	}
	var n domain.Novel
	if err := json.Unmarshal(b, &n); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &n, nil
}

// ValidateManifest checks manifest JSON against the embedded schema. Every schema
// violation is reported, joined into one error wrapping ErrInvalidManifest.
func ValidateManifest(data []byte) error {
	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(manifestSchema), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if res.Valid() {
		return nil
	}
	errs := []error{ErrInvalidManifest}
	for _, e := range res.Errors() {
		errs = append(errs, errors.New(e.String()))
	}
	return errors.Join(errs...)
}

// Save writes the manifest with transactional semantics and a timestamped
// backup of the previous manifest (if present). An invalid manifest is not written.
func Save(ph *ProjectHandle) error {
	if ph == nil {
		return errors.New("nil ProjectHandle")
	}
	if ph.Root == "" || ph.ManifestPath == "" {
		return errors.New("invalid ProjectHandle: missing paths")
	}
	data, err := json.MarshalIndent(ph.Novel, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')
	if err := ValidateManifest(data); err != nil {
		return err
	}

	bdir := filepath.Join(ph.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(ph.ManifestPath); statErr == nil {
		stamp := time.Now().Format("20060102-150405.000")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", ManifestFileName, stamp))
		if cerr := copyFile(ph.ManifestPath, bpath); cerr != nil {
			return fmt.Errorf("backup current manifest: %w", cerr)
		}
	}
	return replaceFile(ph.ManifestPath, data)
}

// replaceFile writes data to a temp file in the target's directory and renames it over path.
func replaceFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp file: %w", werr)
	}
	// Windows cannot rename over an existing file.
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if rerr := os.Rename(temp, path); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), rerr)
	}
	return nil
}

func writeIfMissing(path string, data []byte) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return writeFileSync(path, data)
}

// writeFileSync writes data to a file and flushes it to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

// openFromLatestBackup opens the newest backup that passes validation.
func openFromLatestBackup(root string) (*domain.Novel, error) {
	bdir := filepath.Join(root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	var candidates []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, ManifestFileName+".") && strings.HasSuffix(name, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, name))
		}
	}
	if len(candidates) == 0 {
		return nil, errors.New("no backups found")
	}
	// Timestamps in the names sort lexicographically.
	sort.Sort(sort.Reverse(sort.StringSlice(candidates)))
	var errs []error
	for _, c := range candidates {
		n, err := readManifest(c)
		if err == nil {
			return n, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(c), err))
	}
	return nil, errors.Join(errs...)
}
