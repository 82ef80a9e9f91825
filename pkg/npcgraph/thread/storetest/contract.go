// Package storetest provides a contract suite shared by every thread.Store
// implementation.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/randalmurphal/npcgraph/pkg/npcgraph/thread"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/turn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RawLoader is implemented by stores that can return a thread's stored bytes.
type RawLoader interface {
	LoadRaw(ctx context.Context, threadID string) ([]byte, error)
}

// SampleState returns a populated state for threadID.
func SampleState(threadID string) *turn.State {
	s := turn.Seed(threadID, "guard", "You are Brom, a bridge warden.")
	s.Append(turn.RoleUser, "Aria: is the road safe?")
	s.Append(turn.RoleAssistant, "Safe enough, if you pay the toll.")
	s.Events = []turn.Event{{Source: "GM", Kind: "weather", Content: "fog rolls in"}}
	s.Mood.Merge(map[string]float64{turn.Vigilance: 0.5, turn.Empathy: 0.2})
	s.Intent = "warn"
	s.Scratch.Plan = "warn about the toll"
	s.Scratch.WorldKnowledge = "guards levy an illegal toll at the bridge"
	s.Action = turn.Say("Safe enough, if you pay the toll.")
	return s
}

// RunStoreContract runs a suite of tests verifying a Store implementation
// adheres to the interface contract. maxRecords is the record cap the
// store was built with.
func RunStoreContract(t *testing.T, store thread.Store, maxRecords int) {
	ctx := context.Background()
	threadID := "guard:contract-" + time.Now().Format("20060102150405.000000000")

	t.Run("Save and Load", func(t *testing.T) {
		state := SampleState(threadID)
		require.NoError(t, store.Save(ctx, threadID, state))

		loaded, err := store.Load(ctx, threadID)
		require.NoError(t, err)
		assert.Equal(t, state.Messages, loaded.Messages)
		assert.Equal(t, state.Mood, loaded.Mood)
		assert.Equal(t, state.Scratch, loaded.Scratch)
		assert.Equal(t, state.Action.Content, loaded.Action.Content)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "missing:"+threadID)
		assert.ErrorIs(t, err, thread.ErrNotFound)
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		state := SampleState(threadID)
		state.Intent = "bargain"
		require.NoError(t, store.Save(ctx, threadID, state))

		loaded, err := store.Load(ctx, threadID)
		require.NoError(t, err)
		assert.Equal(t, "bargain", loaded.Intent)
	})

	t.Run("Idempotent Persistence", func(t *testing.T) {
		id := threadID + "-idem"
		require.NoError(t, store.Save(ctx, id, SampleState(id)))

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		first, err := turn.Marshal(loaded)
		require.NoError(t, err)

		require.NoError(t, store.Save(ctx, id, loaded))
		reloaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		second, err := turn.Marshal(reloaded)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(second))

		raw, ok := store.(RawLoader)
		if !ok {
			return
		}
		before, err := raw.LoadRaw(ctx, id)
		require.NoError(t, err)
		again, err := store.Load(ctx, id)
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, id, again))
		after, err := raw.LoadRaw(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, before, after, "re-saving an unchanged state must be byte-identical")
	})

	t.Run("Records", func(t *testing.T) {
		id := threadID + "-records"

		recs, err := store.Records(ctx, id, 0)
		require.NoError(t, err)
		assert.Empty(t, recs)

		var want []thread.Record
		for i := 0; i < 3; i++ {
			rec := thread.NewRecord(id, "guard", fmt.Sprintf("input %d", i), fmt.Sprintf("reply %d", i), "warn",
				turn.Say(fmt.Sprintf("reply %d", i)), nil, turn.Mood{turn.Vigilance: 0.5})
			require.NoError(t, store.AppendRecord(ctx, id, rec))
			want = append(want, rec)
		}

		recs, err = store.Records(ctx, id, 0)
		require.NoError(t, err)
		require.Len(t, recs, 3)
		for i := range want {
			assert.Equal(t, want[i].ID, recs[i].ID)
			assert.Equal(t, want[i].InputText, recs[i].InputText)
			assert.Equal(t, want[i].ActionSummary, recs[i].ActionSummary)
			assert.True(t, want[i].Timestamp.Equal(recs[i].Timestamp))
		}

		recs, err = store.Records(ctx, id, 2)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "input 1", recs[0].InputText)
		assert.Equal(t, "input 2", recs[1].InputText)
	})

	t.Run("Records Capped", func(t *testing.T) {
		if maxRecords <= 0 {
			t.Skip("store has no record cap")
		}
		id := threadID + "-cap"
		for i := 0; i < maxRecords+3; i++ {
			rec := thread.NewRecord(id, "guard", fmt.Sprintf("input %d", i), "", "", nil, nil, nil)
			require.NoError(t, store.AppendRecord(ctx, id, rec))
		}

		recs, err := store.Records(ctx, id, 0)
		require.NoError(t, err)
		require.Len(t, recs, maxRecords)
		assert.Equal(t, "input 3", recs[0].InputText)
		assert.Equal(t, fmt.Sprintf("input %d", maxRecords+2), recs[len(recs)-1].InputText)
	})

	t.Run("Records Do Not Touch State", func(t *testing.T) {
		id := threadID + "-separate"
		require.NoError(t, store.AppendRecord(ctx, id, thread.NewRecord(id, "guard", "hi", "", "", nil, nil, nil)))
		_, err := store.Load(ctx, id)
		assert.ErrorIs(t, err, thread.ErrNotFound)
	})
}
