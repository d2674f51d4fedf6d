package drag

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/akarpov/deskpad/internal/models"
)

type recorder struct {
	raised    []string
	positions []models.Position
	sizes     []models.Size
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		BringToFront:   func(id string) { r.raised = append(r.raised, id) },
		CommitPosition: func(k Kind, id string, p models.Position) { r.positions = append(r.positions, p) },
		CommitSize:     func(k Kind, id string, s models.Size) { r.sizes = append(r.sizes, s) },
	}
}

func TestDrag_MoveAndRelease(t *testing.T) {
	rec := &recorder{}
	c := NewController(rec.callbacks())

	require.NoError(t, c.Start(KindNoteMove, "n1", Point{X: 10, Y: 10}, models.Position{X: 100, Y: 100}, models.Size{}))
	require.True(t, c.Dragging())
	require.Equal(t, []string{"n1"}, rec.raised)

	pos, _, err := c.Move(Point{X: 25, Y: 4})
	require.NoError(t, err)
	require.Equal(t, models.Position{X: 115, Y: 94}, pos)

	require.NoError(t, c.Release(Point{X: 25, Y: 4}))
	require.False(t, c.Dragging())
	require.Equal(t, []models.Position{{X: 115, Y: 94}}, rec.positions)
	require.Empty(t, rec.sizes)
}

func TestDrag_NoMotionStillCommitsOnce(t *testing.T) {
	rec := &recorder{}
	c := NewController(rec.callbacks())

	require.NoError(t, c.Start(KindNoteMove, "n1", Point{X: 10, Y: 10}, models.Position{X: 100, Y: 100}, models.Size{}))
	require.NoError(t, c.Release(Point{X: 10, Y: 10}))

	require.Equal(t, []models.Position{{X: 100, Y: 100}}, rec.positions)
}

func TestDrag_ResizeClampsToMinimums(t *testing.T) {
	rec := &recorder{}
	c := NewController(rec.callbacks())

	require.NoError(t, c.Start(KindNoteResize, "n1", Point{}, models.Position{}, models.Size{Width: 200, Height: 150}))

	_, size, err := c.Move(Point{X: -500, Y: -500})
	require.NoError(t, err)
	require.Equal(t, float64(MinWidth), size.Width)
	require.Equal(t, float64(MinHeight), size.Height)

	require.NoError(t, c.Release(Point{X: -500, Y: -500}))
	require.Equal(t, []models.Size{{Width: MinWidth, Height: MinHeight}}, rec.sizes)
	require.Empty(t, rec.positions)
}

func TestDrag_SecondStartRejected(t *testing.T) {
	c := NewController(Callbacks{})

	require.NoError(t, c.Start(KindTimeBoxMove, "", Point{}, models.Position{}, models.Size{}))
	require.ErrorIs(t, c.Start(KindNoteMove, "n2", Point{}, models.Position{}, models.Size{}), ErrDragActive)
}

func TestDrag_MoveWithoutSession(t *testing.T) {
	c := NewController(Callbacks{})
	_, _, err := c.Move(Point{X: 1, Y: 1})
	require.ErrorIs(t, err, ErrNoDrag)
	require.ErrorIs(t, c.Release(Point{}), ErrNoDrag)
}

func TestDrag_BoxKindsDoNotRaise(t *testing.T) {
	rec := &recorder{}
	c := NewController(rec.callbacks())

	require.NoError(t, c.Start(KindTodoBoxMove, "", Point{}, models.Position{X: 60, Y: 60}, models.Size{}))
	require.Empty(t, rec.raised)
	require.NoError(t, c.Release(Point{}))
	require.Len(t, rec.positions, 1)
}

func TestDrag_ResizeAccumulatesDeltas(t *testing.T) {
	rec := &recorder{}
	c := NewController(rec.callbacks())

	require.NoError(t, c.Start(KindTodoBoxResize, "", Point{X: 0, Y: 0}, models.Position{}, models.Size{Width: 200, Height: 300}))

	_, _, err := c.Move(Point{X: 10, Y: 10})
	require.NoError(t, err)
	_, size, err := c.Move(Point{X: 30, Y: 15})
	require.NoError(t, err)
	require.Equal(t, models.Size{Width: 230, Height: 315}, size)
}
