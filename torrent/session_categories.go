package torrent

import (
	"errors"
	"path/filepath"
	"sort"
	"strings"
)

// validCategoryName reports whether name is acceptable as a category.
// Subcategory paths like "a/b" are allowed; empty segments, leading or
// trailing slashes and backslashes are not.
func validCategoryName(name string) bool {
	if name == "" {
		return false
	}
	if strings.ContainsRune(name, '\\') {
		return false
	}
	for _, segment := range strings.Split(name, "/") {
		if segment == "" {
			return false
		}
	}
	return true
}

// validTagName reports whether tag is acceptable. Tags are free-form
// except for the comma, which separates tags in list inputs.
func validTagName(tag string) bool {
	return tag != "" && tag == strings.TrimSpace(tag) && !strings.ContainsRune(tag, ',')
}

// resolveCategory validates a category coming in with an add request.
// Unknown but valid names are created on the fly; invalid names are
// dropped. Runs on the loop.
func (s *Session) resolveCategory(name string) string {
	if name == "" {
		return ""
	}
	if !validCategoryName(name) {
		s.log.Warningf("dropping invalid category %q", name)
		return ""
	}
	if _, ok := s.categories[name]; !ok {
		s.categories[name] = ""
		s.persistCategories()
		s.log.Infof("created category %q", name)
	}
	return name
}

// categorySavePath resolves the directory a category stores data in.
// An explicit override wins; otherwise the path derives from the name
// under the default save path. Relative overrides resolve under the
// default save path too.
func (s *Session) categorySavePath(name string) string {
	if name == "" {
		return s.config.DefaultSavePath
	}
	override := s.categories[name]
	if override == "" {
		return filepath.Join(s.config.DefaultSavePath, name)
	}
	if !filepath.IsAbs(override) {
		return filepath.Join(s.config.DefaultSavePath, override)
	}
	return filepath.Clean(override)
}

// torrentSavePath is the directory the torrent's data belongs in. An
// explicit save path wins, otherwise the category decides.
func (s *Session) torrentSavePath(rec *record) string {
	if rec.savePath != "" {
		return rec.savePath
	}
	return s.categorySavePath(rec.category)
}

// AddCategory creates a category. savePath overrides the implicit
// `<default save path>/<name>` directory; empty keeps the implicit one.
func (s *Session) AddCategory(name, savePath string) error {
	if !validCategoryName(name) {
		return newInputError(errors.New("invalid category name"))
	}
	var cerr error
	err := s.call(func() {
		if _, ok := s.categories[name]; ok {
			cerr = newInputError(errors.New("category already exists"))
			return
		}
		s.categories[name] = savePath
		s.persistCategories()
		s.log.Infof("created category %q", name)
	})
	if err != nil {
		return err
	}
	return cerr
}

// EditCategory changes the save path override of an existing category.
// Torrents managed by the category follow the new path on their next
// move; data already on disk stays where it is.
func (s *Session) EditCategory(name, savePath string) error {
	var cerr error
	err := s.call(func() {
		if _, ok := s.categories[name]; !ok {
			cerr = newInputError(errors.New("category not found"))
			return
		}
		s.categories[name] = savePath
		s.persistCategories()
	})
	if err != nil {
		return err
	}
	return cerr
}

// RemoveCategory deletes a category and clears it from all torrents
// that use it.
func (s *Session) RemoveCategory(name string) error {
	var cerr error
	err := s.call(func() {
		if _, ok := s.categories[name]; !ok {
			cerr = newInputError(errors.New("category not found"))
			return
		}
		delete(s.categories, name)
		s.persistCategories()
		for _, rec := range s.torrents {
			if rec.category != name {
				continue
			}
			rec.category = ""
			rec.needSaveResume = true
			s.persistRecord(rec, nil)
		}
		s.log.Infof("removed category %q", name)
	})
	if err != nil {
		return err
	}
	return cerr
}

// Categories returns all category names mapped to their save path
// override. An empty value means the path derives from the name.
func (s *Session) Categories() map[string]string {
	var categories map[string]string
	_ = s.call(func() {
		categories = make(map[string]string, len(s.categories))
		for name, path := range s.categories {
			categories[name] = path
		}
	})
	return categories
}

// AddTag registers a tag so it can be attached to torrents.
func (s *Session) AddTag(tag string) error {
	if !validTagName(tag) {
		return newInputError(errors.New("invalid tag"))
	}
	var terr error
	err := s.call(func() {
		if _, ok := s.tags[tag]; ok {
			terr = newInputError(errors.New("tag already exists"))
			return
		}
		s.tags[tag] = struct{}{}
		s.persistTags()
	})
	if err != nil {
		return err
	}
	return terr
}

// RemoveTag deletes the tag and detaches it from all torrents.
func (s *Session) RemoveTag(tag string) error {
	var terr error
	err := s.call(func() {
		if _, ok := s.tags[tag]; !ok {
			terr = newInputError(errors.New("tag not found"))
			return
		}
		delete(s.tags, tag)
		s.persistTags()
		for _, rec := range s.torrents {
			if _, ok := rec.tags[tag]; !ok {
				continue
			}
			delete(rec.tags, tag)
			rec.needSaveResume = true
			s.persistRecord(rec, nil)
		}
	})
	if err != nil {
		return err
	}
	return terr
}

// Tags returns all registered tags in sorted order.
func (s *Session) Tags() []string {
	var tags []string
	_ = s.call(func() {
		tags = make([]string, 0, len(s.tags))
		for tag := range s.tags {
			tags = append(tags, tag)
		}
	})
	sort.Strings(tags)
	return tags
}

// SetTorrentCategory moves the torrent into the category. An empty
// name clears the category.
func (s *Session) SetTorrentCategory(ih InfoHash, name string) error {
	if name != "" && !validCategoryName(name) {
		return newInputError(errors.New("invalid category name"))
	}
	var cerr error
	err := s.call(func() {
		rec, ok := s.torrents[ih]
		if !ok {
			cerr = newInputError(ErrTorrentNotFound)
			return
		}
		rec.category = s.resolveCategory(name)
		rec.needSaveResume = true
		s.persistRecord(rec, nil)
	})
	if err != nil {
		return err
	}
	return cerr
}

// AddTorrentTags attaches tags to the torrent. Unknown tags are
// registered on the fly.
func (s *Session) AddTorrentTags(ih InfoHash, tags []string) error {
	for _, tag := range tags {
		if !validTagName(tag) {
			return newInputError(errors.New("invalid tag"))
		}
	}
	var terr error
	err := s.call(func() {
		rec, ok := s.torrents[ih]
		if !ok {
			terr = newInputError(ErrTorrentNotFound)
			return
		}
		changedSession := false
		for _, tag := range tags {
			if rec.tags == nil {
				rec.tags = make(map[string]struct{})
			}
			rec.tags[tag] = struct{}{}
			if _, ok := s.tags[tag]; !ok {
				s.tags[tag] = struct{}{}
				changedSession = true
			}
		}
		if changedSession {
			s.persistTags()
		}
		rec.needSaveResume = true
		s.persistRecord(rec, nil)
	})
	if err != nil {
		return err
	}
	return terr
}

// RemoveTorrentTags detaches tags from the torrent. The tags stay
// registered in the session.
func (s *Session) RemoveTorrentTags(ih InfoHash, tags []string) error {
	var terr error
	err := s.call(func() {
		rec, ok := s.torrents[ih]
		if !ok {
			terr = newInputError(ErrTorrentNotFound)
			return
		}
		for _, tag := range tags {
			delete(rec.tags, tag)
		}
		rec.needSaveResume = true
		s.persistRecord(rec, nil)
	})
	if err != nil {
		return err
	}
	return terr
}
