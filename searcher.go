package pathwalk

// Searcher chooses which pending path state to run next. The choice fixes
// the discovery order of paths and therefore their IDs.
type Searcher interface {
	// AddState adds a state to the pending set.
	AddState(ps *PathState)

	// SelectState removes and returns the next state, or nil when empty.
	SelectState() *PathState

	// Len returns the number of pending states.
	Len() int
}

// DFSSearcher explores depth-first. Fork successors are pushed false side
// first so the true side is always selected next, giving the conventional
// then-branch-first ordering.
type DFSSearcher struct {
	states []*PathState
}

// NewDFSSearcher returns a new instance of DFSSearcher.
func NewDFSSearcher() *DFSSearcher { return &DFSSearcher{} }

// AddState pushes ps onto the stack.
func (s *DFSSearcher) AddState(ps *PathState) {
	s.states = append(s.states, ps)
}

// SelectState pops the most recently added state.
func (s *DFSSearcher) SelectState() *PathState {
	if len(s.states) == 0 {
		return nil
	}
	ps := s.states[len(s.states)-1]
	s.states[len(s.states)-1] = nil
	s.states = s.states[:len(s.states)-1]
	return ps
}

// Len returns the number of pending states.
func (s *DFSSearcher) Len() int { return len(s.states) }

// BFSSearcher explores breadth-first, level by level across forks.
type BFSSearcher struct {
	states []*PathState
}

// NewBFSSearcher returns a new instance of BFSSearcher.
func NewBFSSearcher() *BFSSearcher { return &BFSSearcher{} }

// AddState enqueues ps.
func (s *BFSSearcher) AddState(ps *PathState) {
	s.states = append(s.states, ps)
}

// SelectState dequeues the oldest state.
func (s *BFSSearcher) SelectState() *PathState {
	if len(s.states) == 0 {
		return nil
	}
	ps := s.states[0]
	s.states[0] = nil
	s.states = s.states[1:]
	return ps
}

// Len returns the number of pending states.
func (s *BFSSearcher) Len() int { return len(s.states) }
