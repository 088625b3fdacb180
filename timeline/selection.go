package timeline

// Selection is a cursor over a tab's ordered index. It knows nothing about the
// collection it points into: callers pass the bounds and must not move it at
// all while the collection is empty.
type Selection struct {
	index    int
	selected bool
}

func (s Selection) Selected() (int, bool) {
	return s.index, s.selected
}

func (s *Selection) Select(index int) {
	s.index = index
	s.selected = true
}

func (s *Selection) Clear() {
	s.index = 0
	s.selected = false
}

func (s *Selection) Previous() {
	if !s.selected {
		s.Select(0)
		return
	}
	if s.index > 0 {
		s.index--
	}
}

// Next moves down one item, stopping at maxIndex. Without a selection it
// selects the first item, even when that is the only one.
func (s *Selection) Next(maxIndex int) {
	if !s.selected {
		s.Select(0)
		return
	}
	if s.index < maxIndex {
		s.index++
	}
}

func (s *Selection) First() {
	s.Select(0)
}

func (s *Selection) Last(maxIndex int) {
	s.Select(maxIndex)
}
