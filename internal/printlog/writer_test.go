package printlog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fruivita/sci/internal/shared"
)

func mustParse(t *testing.T, raw string) Record {
	t.Helper()
	rec, err := NewParser().Parse(raw)
	require.NoError(t, err)
	return rec
}

func TestWriterPersistsResolvedPrinting(t *testing.T) {
	repo := newMemoryRepo()
	repo.addDepartment(5)
	w := NewWriter(repo)

	id, err := w.Write(context.Background(), mustParse(t, line(nil)))
	require.NoError(t, err)
	require.NotZero(t, id)

	prints := repo.printings()
	require.Len(t, prints, 1)
	p := prints[0]
	assert.Equal(t, 3, p.Pages)
	assert.Equal(t, 2, p.Copies)
	require.NotNil(t, p.DepartmentID)
	assert.Equal(t, int64(5), *p.DepartmentID)
	for _, kind := range []Entity{EntityServer, EntityClient, EntityPrinter, EntityUser} {
		assert.Equal(t, 1, repo.count(kind), kind.String())
	}
}

func TestWriterLeavesUnknownDepartmentNull(t *testing.T) {
	repo := newMemoryRepo()
	_, err := NewWriter(repo).Write(context.Background(), mustParse(t, line(map[int]string{posDepartment: "999"})))
	require.NoError(t, err)
	prints := repo.printings()
	require.Len(t, prints, 1)
	assert.Nil(t, prints[0].DepartmentID)
}

func TestWriterRejectsDuplicateEvent(t *testing.T) {
	repo := newMemoryRepo()
	w := NewWriter(repo)
	rec := mustParse(t, line(nil))

	_, err := w.Write(context.Background(), rec)
	require.NoError(t, err)
	first := repo.printings()[0]

	_, err = w.Write(context.Background(), mustParse(t, line(map[int]string{posPages: "9", posFilename: "other.pdf"})))
	require.ErrorIs(t, err, ErrDuplicate)
	require.ErrorIs(t, err, shared.ErrDuplicate)

	prints := repo.printings()
	require.Len(t, prints, 1)
	assert.Equal(t, first, prints[0], "the stored event is not overwritten")
}

func TestWriterRollsBackEntitiesOnFailure(t *testing.T) {
	repo := newMemoryRepo()
	w := NewWriter(repo)
	_, err := w.Write(context.Background(), mustParse(t, line(nil)))
	require.NoError(t, err)

	repo.insertErr = errors.New("connection reset")
	_, err = w.Write(context.Background(), mustParse(t, line(map[int]string{posPrinter: "brand-new-printer"})))
	require.Error(t, err)

	assert.False(t, repo.has(EntityPrinter, "brand-new-printer"))
	assert.True(t, repo.has(EntityPrinter, "hp-laser-3"), "rows from committed transactions remain")
	assert.Len(t, repo.printings(), 1)
}

func TestResolverRetriesLookupAfterLostRace(t *testing.T) {
	repo := newMemoryRepo()
	repo.raceOnce = map[Entity]string{EntityClient: "ws-0042"}

	_, err := NewWriter(repo).Write(context.Background(), mustParse(t, line(nil)))
	require.NoError(t, err)
	assert.Equal(t, 1, repo.count(EntityClient))
	assert.Len(t, repo.printings(), 1)
}

func TestResolverNormalizesNames(t *testing.T) {
	repo := newMemoryRepo()
	w := NewWriter(repo)
	composed := "impressora-s\u00e3o-paulo"
	decomposed := "impressora-sa\u0303o-paulo"

	_, err := w.Write(context.Background(), mustParse(t, line(map[int]string{posPrinter: composed})))
	require.NoError(t, err)
	_, err = w.Write(context.Background(), mustParse(t, line(map[int]string{posPrinter: decomposed, posTime: "11:00:00"})))
	require.NoError(t, err)

	assert.Equal(t, 1, repo.count(EntityPrinter))
	assert.Len(t, repo.printings(), 2)
}
