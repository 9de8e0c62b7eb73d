package model

import "fmt"

// FileCollection is an ordered set of *PipelineFile, keyed by LocalPath.
// Ported from the teacher's Bucket container concept (a named grouping of
// Artifact records); here the grouping is unnamed and scoped to one handler
// execution, and membership is keyed by local filesystem path rather than
// bucket+name.
//
// Insertion order is preserved so that reporting and iteration reflect the
// order files were discovered by the resolver, which in turn usually
// reflects the order they appear in an archive or manifest.
type FileCollection struct {
	order []string
	files map[string]*PipelineFile
}

// NewFileCollection returns an empty collection.
func NewFileCollection() *FileCollection {
	return &FileCollection{
		files: make(map[string]*PipelineFile),
	}
}

// ErrDuplicateFile is returned by Add when a record with the same
// LocalPath is already present. Two distinct records claiming the same
// local materialisation would race each other through every later phase,
// so the collision surfaces at insertion time.
var ErrDuplicateFile = fmt.Errorf("duplicate file")

// Add inserts f, keyed by f.LocalPath. Adding a path already present
// returns ErrDuplicateFile (wrapped with the offending path).
func (c *FileCollection) Add(f *PipelineFile) error {
	if f == nil {
		return nil
	}
	if _, exists := c.files[f.LocalPath]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateFile, f.LocalPath)
	}
	c.order = append(c.order, f.LocalPath)
	c.files[f.LocalPath] = f
	return nil
}

// Discard removes the file at localPath, if present.
func (c *FileCollection) Discard(localPath string) {
	if _, exists := c.files[localPath]; !exists {
		return
	}
	delete(c.files, localPath)
	for i, p := range c.order {
		if p == localPath {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Get returns the file at localPath, or nil if absent.
func (c *FileCollection) Get(localPath string) *PipelineFile {
	return c.files[localPath]
}

// Count returns the number of files currently in the collection.
func (c *FileCollection) Count() int {
	return len(c.order)
}

// All returns the files in insertion order. The returned slice is owned by
// the caller; mutating it does not affect the collection, but mutating the
// *PipelineFile elements does.
func (c *FileCollection) All() []*PipelineFile {
	out := make([]*PipelineFile, 0, len(c.order))
	for _, p := range c.order {
		out = append(out, c.files[p])
	}
	return out
}

// Filter returns a FileView over c narrowed to the files for which pred
// returns true. The view is live: it holds a reference to c and pred rather
// than a copy, so later additions to c are reflected on the next iteration.
func (c *FileCollection) Filter(pred func(*PipelineFile) bool) *FileView {
	return &FileView{source: c, pred: pred}
}

// FileView is a read-only, lazily-evaluated narrowing of a FileCollection.
// Checker/harvest/publisher phases build views like "files not yet failed a
// check" instead of materializing and re-materializing slices by hand.
type FileView struct {
	source *FileCollection
	pred   func(*PipelineFile) bool
}

// All evaluates the view's predicate against the current contents of its
// source collection and returns the matches in source order.
func (v *FileView) All() []*PipelineFile {
	out := make([]*PipelineFile, 0, v.source.Count())
	for _, p := range v.source.order {
		f := v.source.files[p]
		if v.pred == nil || v.pred(f) {
			out = append(out, f)
		}
	}
	return out
}

// Count evaluates the view and returns the number of matches.
func (v *FileView) Count() int {
	return len(v.All())
}

// Filter narrows the view further, composing predicates.
func (v *FileView) Filter(pred func(*PipelineFile) bool) *FileView {
	outer := v.pred
	return &FileView{
		source: v.source,
		pred: func(f *PipelineFile) bool {
			if outer != nil && !outer(f) {
				return false
			}
			return pred(f)
		},
	}
}

// Slices partitions the view's current matches into at most n
// contiguously-ordered chunks of ceil(total/n) files each (the last may be
// smaller, and fewer than n chunks result when that size covers the
// matches sooner), used by process-invoking harvesters that
// batch their invocation (original_source steps/harvest.py
// TalendHarvesterRunner splits its file list before invoking the external
// tool per slice, so that a failure partway through can be undone
// slice-by-slice rather than all-or-nothing).
func (v *FileView) Slices(n int) []*FileCollection {
	files := v.All()
	if n <= 0 {
		n = 1
	}
	total := len(files)
	if total == 0 {
		return nil
	}
	size := (total + n - 1) / n
	var out []*FileCollection
	for start := 0; start < total; start += size {
		end := start + size
		if end > total {
			end = total
		}
		chunk := NewFileCollection()
		for _, f := range files[start:end] {
			_ = chunk.Add(f)
		}
		out = append(out, chunk)
	}
	return out
}
