/* Copyright 2026 Whisper CMS Contributors
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package contentstore is a bbolt-backed content index that serves as
// the injected resolver hook: it maps served paths and front-matter
// slugs to content records.
package contentstore

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	bolt "go.etcd.io/bbolt"

	"github.com/whisper-cms/whisper/core"
	"github.com/whisper-cms/whisper/resolve"
)

var (
	contentBucket = []byte("content")
	slugBucket    = []byte("slugs")
)

// record is what sits under a served path in the content bucket.
type record struct {
	Kind        core.ContentKind       `json:"kind"`
	FrontMatter map[string]interface{} `json:"frontMatter"`
	BodyPath    string                 `json:"bodyPath,omitempty"`
}

// Store is a content index in a single bbolt file.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) the index file.
func Open(filename string) (*Store, error) {
	db, err := bolt.Open(filename, 0644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open content index %s: %w", filename, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{contentBucket, slugBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Put records content under its served path.  A "slug" front-matter
// key additionally registers an alias for resolution.
func (s *Store) Put(served string, kind core.ContentKind, fm map[string]interface{}, bodyPath string) error {
	if fm == nil {
		fm = map[string]interface{}{}
	}
	js, err := json.Marshal(record{Kind: kind, FrontMatter: fm, BodyPath: bodyPath})
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(contentBucket).Put([]byte(served), js); err != nil {
			return err
		}
		if slug := gjson.GetBytes(js, "frontMatter.slug").String(); slug != "" {
			if !strings.HasPrefix(slug, "/") {
				slug = "/" + slug
			}
			return tx.Bucket(slugBucket).Put([]byte(slug), []byte(served))
		}
		return nil
	})
}

// Resolve implements resolve.ResolveFunc.  Lookup precedence: slug
// alias (with and without the ".html" the normalizer appended), exact
// served path, served+".html", then the directory index.  A total miss
// is empty asset content, not an error.
func (s *Store) Resolve(served, method string) (core.ContentMeta, error) {
	var meta core.ContentMeta
	err := s.db.View(func(tx *bolt.Tx) error {
		content, slugs := tx.Bucket(contentBucket), tx.Bucket(slugBucket)

		for _, slug := range []string{served, strings.TrimSuffix(served, ".html")} {
			if target := slugs.Get([]byte(slug)); target != nil {
				if js := content.Get(target); js != nil {
					return decode(js, &meta)
				}
			}
		}
		for _, key := range []string{served, served + ".html", strings.TrimSuffix(served, "/") + "/index.html"} {
			if js := content.Get([]byte(key)); js != nil {
				return decode(js, &meta)
			}
		}

		meta = core.ContentMeta{Kind: core.ContentAsset, FrontMatter: map[string]interface{}{}}
		return nil
	})
	if err != nil {
		return core.ContentMeta{}, &resolve.ContextError{Path: served, Err: err}
	}
	return meta, nil
}

func decode(js []byte, meta *core.ContentMeta) error {
	var rec record
	if err := json.Unmarshal(js, &rec); err != nil {
		return err
	}
	if rec.FrontMatter == nil {
		rec.FrontMatter = map[string]interface{}{}
	}
	*meta = core.ContentMeta{Kind: rec.Kind, FrontMatter: rec.FrontMatter, BodyPath: rec.BodyPath}
	return nil
}

// IndexDir walks a content tree and indexes every html/json file it
// finds, parsing front matter as it goes.  Other files are indexed as
// assets.  Returns how many files were indexed.
func (s *Store) IndexDir(root string) (int, error) {
	n := 0
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		served := "/" + filepath.ToSlash(rel)
		kind := resolve.KindForPath(served)

		fm := map[string]interface{}{}
		if kind == core.ContentHTML || kind == core.ContentJSON {
			bs, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			fm, _ = resolve.ParseFrontMatter(string(bs))
		}
		if err := s.Put(served, kind, fm, p); err != nil {
			return err
		}
		n++
		return nil
	})
	return n, err
}
