package catalog

// Selection is an ordered set of book ids.
type Selection struct {
	ids   []string
	index map[string]struct{}
}

func NewSelection() *Selection {
	return &Selection{index: make(map[string]struct{})}
}

// Toggle flips membership and reports whether id is now selected.
func (s *Selection) Toggle(id string) bool {
	if s.Has(id) {
		s.Remove(id)
		return false
	}
	s.Add(id)
	return true
}

func (s *Selection) Add(ids ...string) {
	for _, id := range ids {
		if _, ok := s.index[id]; ok {
			continue
		}
		s.index[id] = struct{}{}
		s.ids = append(s.ids, id)
	}
}

func (s *Selection) Remove(ids ...string) {
	for _, id := range ids {
		if _, ok := s.index[id]; !ok {
			continue
		}
		delete(s.index, id)
		for i, existing := range s.ids {
			if existing == id {
				s.ids = append(s.ids[:i], s.ids[i+1:]...)
				break
			}
		}
	}
}

// Set replaces the whole selection.
func (s *Selection) Set(ids ...string) {
	s.Clear()
	s.Add(ids...)
}

func (s *Selection) Clear() {
	s.ids = nil
	s.index = make(map[string]struct{})
}

func (s *Selection) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

func (s *Selection) Len() int {
	return len(s.ids)
}

// IDs returns the selected ids in the order they were added.
func (s *Selection) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Retain drops every selected id not present in keep.
func (s *Selection) Retain(keep map[string]struct{}) {
	var drop []string
	for _, id := range s.ids {
		if _, ok := keep[id]; !ok {
			drop = append(drop, id)
		}
	}
	s.Remove(drop...)
}
