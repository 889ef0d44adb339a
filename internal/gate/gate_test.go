package gate

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/smartedu-app/smartedu-api/internal/dto"
	"github.com/smartedu-app/smartedu-api/internal/models"
)

type stubLister struct {
	pending []dto.PendingPromotionResponse
	err     error
	calls   int
}

func (s *stubLister) ListPendingForParent(ctx context.Context, parentID uint, role string) ([]dto.PendingPromotionResponse, error) {
	s.calls++
	return s.pending, s.err
}

func pendingItems(ids ...uint) []dto.PendingPromotionResponse {
	items := make([]dto.PendingPromotionResponse, 0, len(ids))
	for _, id := range ids {
		items = append(items, dto.PendingPromotionResponse{ID: id})
	}
	return items
}

func TestGateReleasesNonParents(t *testing.T) {
	lister := &stubLister{pending: pendingItems(1)}
	g := New(lister, zerolog.Nop())

	decision, err := g.Check(context.Background(), 1, models.RoleTeacher)
	require.NoError(t, err)
	require.Equal(t, StateReleased, decision.State)
	require.Zero(t, lister.calls)
}

func TestGateBlocksUntilBatchExhausted(t *testing.T) {
	lister := &stubLister{pending: pendingItems(1, 2)}
	g := New(lister, zerolog.Nop())

	first, err := g.Check(context.Background(), 7, models.RoleParent)
	require.NoError(t, err)
	require.True(t, first.Blocked())
	require.Len(t, first.Pending, 2)
	require.Equal(t, uint(1), first.Current.ID)

	// repeated checks while blocking reuse the session, no re-fetch
	again, err := g.Check(context.Background(), 7, models.RoleParent)
	require.NoError(t, err)
	require.True(t, again.Blocked())
	require.Equal(t, 1, lister.calls)

	g.Advance(7)

	mid, err := g.Check(context.Background(), 7, models.RoleParent)
	require.NoError(t, err)
	require.True(t, mid.Blocked())
	require.Equal(t, uint(2), mid.Current.ID)

	// last answer exhausts the batch; the gate re-fetches before releasing
	g.Advance(7)
	lister.pending = nil

	final, err := g.Check(context.Background(), 7, models.RoleParent)
	require.NoError(t, err)
	require.Equal(t, StateReleased, final.State)
	require.Equal(t, 2, lister.calls)
}

func TestGateRecheckCatchesNewBatch(t *testing.T) {
	lister := &stubLister{pending: pendingItems(1)}
	g := New(lister, zerolog.Nop())

	first, err := g.Check(context.Background(), 7, models.RoleParent)
	require.NoError(t, err)
	require.True(t, first.Blocked())

	g.Advance(7)

	// a rollover ran while the parent was answering
	lister.pending = pendingItems(9)

	second, err := g.Check(context.Background(), 7, models.RoleParent)
	require.NoError(t, err)
	require.True(t, second.Blocked())
	require.Equal(t, uint(9), second.Current.ID)
}

func TestGateFailsOpenOnListerError(t *testing.T) {
	lister := &stubLister{err: errors.New("database down")}
	g := New(lister, zerolog.Nop())

	decision, err := g.Check(context.Background(), 7, models.RoleParent)
	require.NoError(t, err)
	require.Equal(t, StateReleased, decision.State)
}

func TestGuardLocksBlockedParents(t *testing.T) {
	lister := &stubLister{pending: pendingItems(1)}
	g := New(lister, zerolog.Nop())

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(7))
		c.Locals("user_role", models.RoleParent)
		return c.Next()
	})
	app.Use(Guard(g))
	app.Get("/lessons", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/academic-years/promotions/pending", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/lessons", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusLocked, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "\"error\"")

	// the promotion endpoints stay reachable so the parent can answer
	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/academic-years/promotions/pending", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	// once the batch is answered the app opens up again
	g.Advance(7)
	lister.pending = nil

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/lessons", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}
