package editor

// Selection tracks the single block open in the property panel. It holds
// only the block id, never a copy of its content.
type Selection struct {
	blockID string
}

// Selected returns the selected block id and whether one is set.
func (s *Selection) Selected() (string, bool) {
	return s.blockID, s.blockID != ""
}

func (s *Selection) set(id string) {
	s.blockID = id
}

// Deselect clears the selection unconditionally.
func (s *Selection) Deselect() {
	s.blockID = ""
}

// OnBlockDeleted clears the selection when it points at id.
func (s *Selection) OnBlockDeleted(id string) {
	if s.blockID == id {
		s.blockID = ""
	}
}
