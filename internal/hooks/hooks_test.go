package hooks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHooksRunInRegistrationOrder(t *testing.T) {
	r := NewRegistry(nil)
	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		r.Register(PreConvert, func(context.Context, Event) error {
			order = append(order, i)
			return nil
		})
	}

	r.Fire(context.Background(), Event{Point: PreConvert})
	require.Equal(t, []int{1, 2, 3}, order)
}

func TestHookErrorDoesNotStopOthers(t *testing.T) {
	r := NewRegistry(nil)
	var ran bool
	r.Register(PostConvert, func(context.Context, Event) error {
		return errors.New("boom")
	})
	r.Register(PostConvert, func(context.Context, Event) error {
		ran = true
		return nil
	})

	r.Fire(context.Background(), Event{Point: PostConvert})
	require.True(t, ran)
}

func TestHooksScopedToPoint(t *testing.T) {
	r := NewRegistry(nil)
	var count int
	r.Register(PreDiscovery, func(context.Context, Event) error {
		count++
		return nil
	})

	r.Fire(context.Background(), Event{Point: PostDiscovery})
	require.Zero(t, count)
	r.Fire(context.Background(), Event{Point: PreDiscovery})
	require.Equal(t, 1, count)
}

func TestEventCarriesContext(t *testing.T) {
	r := NewRegistry(nil)
	var got Event
	r.Register(PostConvert, func(_ context.Context, ev Event) error {
		got = ev
		return nil
	})

	r.Fire(context.Background(), Event{
		Point:    PostConvert,
		Project:  "guide",
		Format:   "pdf",
		Artifact: "output/guide.pdf",
	})
	require.Equal(t, "guide", got.Project)
	require.Equal(t, "pdf", got.Format)
	require.Equal(t, "output/guide.pdf", got.Artifact)
}
