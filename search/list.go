package search

// Key is a keyboard key the suggestion list reacts to.
type Key string

const (
	KeyDown   Key = "ArrowDown"
	KeyUp     Key = "ArrowUp"
	KeyEnter  Key = "Enter"
	KeyEscape Key = "Escape"
)

// NoHighlight is the highlight index when nothing is highlighted.
const NoHighlight = -1

// List is the suggestion dropdown state.
type List struct {
	Results   []Result `json:"results"`
	Highlight int      `json:"highlight"`
	Open      bool     `json:"open"`
}

// NewList returns a closed, empty list.
func NewList() List {
	return List{Highlight: NoHighlight}
}

// SetResults replaces the suggestions and opens the list when there are any.
func (l *List) SetResults(rs []Result) {
	l.Results = rs
	l.Highlight = NoHighlight
	l.Open = len(rs) > 0
}

// Clear empties and closes the list.
func (l *List) Clear() {
	l.Results = nil
	l.Highlight = NoHighlight
	l.Open = false
}

// Close hides the list, keeping its results for a later Focus.
func (l *List) Close() {
	l.Open = false
	l.Highlight = NoHighlight
}

// Focus reopens the list if it still has results.
func (l *List) Focus() {
	l.Open = len(l.Results) > 0
}

// Handle applies key and returns the picked result on Enter. Keys are ignored
// while the list is closed or empty. Up from no highlight wraps to the last
// result.
func (l *List) Handle(k Key) (Result, bool) {
	n := len(l.Results)
	if !l.Open || n == 0 {
		return Result{}, false
	}
	switch k {
	case KeyDown:
		l.Highlight = (l.Highlight + 1) % n
	case KeyUp:
		if l.Highlight <= 0 {
			l.Highlight = n - 1
		} else {
			l.Highlight--
		}
	case KeyEnter:
		i := l.Highlight
		if i == NoHighlight {
			i = 0
		}
		return l.pick(i)
	case KeyEscape:
		l.Close()
	}
	return Result{}, false
}

// Select picks the result at index i, as a click does.
func (l *List) Select(i int) (Result, bool) {
	if i < 0 || i >= len(l.Results) {
		return Result{}, false
	}
	return l.pick(i)
}

func (l *List) pick(i int) (Result, bool) {
	r := l.Results[i]
	l.Clear()
	return r, true
}
