package publisher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aodn/pipeline/harvest"
	"github.com/aodn/pipeline/model"
	"github.com/aodn/pipeline/pipelineerr"
)

// fakeBroker is an in-memory StorageBroker stand-in, simpler than a mockery
// mock since the publisher tests care about state (what's present) rather
// than call expectations.
type fakeBroker struct {
	objects  map[string]bool
	failPuts map[string]bool
	failDels map[string]bool
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		objects:  make(map[string]bool),
		failPuts: make(map[string]bool),
		failDels: make(map[string]bool),
	}
}

func (b *fakeBroker) Put(ctx context.Context, localPath, remotePath string) error {
	if b.failPuts[remotePath] {
		return errors.New("put failed")
	}
	b.objects[remotePath] = true
	return nil
}

func (b *fakeBroker) Delete(ctx context.Context, remotePath string) error {
	if b.failDels[remotePath] {
		return errors.New("delete failed")
	}
	delete(b.objects, remotePath)
	return nil
}

func (b *fakeBroker) Exists(ctx context.Context, remotePath string) (bool, error) {
	return b.objects[remotePath], nil
}

func (b *fakeBroker) Scheme() string { return "fake" }

// fakeHarvester is an in-memory HarvesterRunner stand-in.
type fakeHarvester struct {
	name        string
	supportsDel bool
	ingested    []string
	removed     []string
	failRemove  bool
}

func (h *fakeHarvester) Name() string           { return h.name }
func (h *fakeHarvester) SupportsDeletion() bool { return h.supportsDel }

func (h *fakeHarvester) Ingest(files *model.FileCollection) error {
	for _, f := range files.All() {
		h.ingested = append(h.ingested, f.DestPath)
	}
	return nil
}

func (h *fakeHarvester) Remove(files *model.FileCollection) error {
	if h.failRemove {
		return errors.New("remove failed")
	}
	for _, f := range files.All() {
		h.removed = append(h.removed, f.DestPath)
	}
	return nil
}

var _ harvest.HarvesterRunner = (*fakeHarvester)(nil)

func singleFileMatcher(name string) func(*model.PipelineFile) string {
	return func(*model.PipelineFile) string { return name }
}

func TestPublishArchiveHarvestStoreOrdering(t *testing.T) {
	archiveBroker := newFakeBroker()
	storeBroker := newFakeBroker()
	h := &fakeHarvester{name: "waves", supportsDel: true}

	f := model.NewPipelineFile("/tmp/a.nc", "a.nc")
	f.ArchivePath = "archive/a.nc"
	f.DestPath = "dest/a.nc"
	f.PublishType = model.PublishArchive.With(model.PublishHarvestAddition).With(model.PublishUpload)

	collection := model.NewFileCollection()
	collection.Add(f)

	p := &Publisher{
		ArchiveBroker:  archiveBroker,
		StoreBroker:    storeBroker,
		MatchHarvester: singleFileMatcher("waves"),
		Harvesters:     map[string]harvest.HarvesterRunner{"waves": h},
	}

	require.NoError(t, p.Publish(context.Background(), collection))

	assert.True(t, f.IsArchived)
	assert.True(t, f.IsHarvested)
	assert.True(t, f.IsStored)
	assert.True(t, archiveBroker.objects["archive/a.nc"])
	assert.True(t, storeBroker.objects["dest/a.nc"])
	assert.Equal(t, []string{"dest/a.nc"}, h.ingested)
}

func TestPublishRollsBackHarvestOnStoreFailure(t *testing.T) {
	storeBroker := newFakeBroker()
	storeBroker.failPuts["dest/a.nc"] = true
	h := &fakeHarvester{name: "waves", supportsDel: true}

	f := model.NewPipelineFile("/tmp/a.nc", "a.nc")
	f.DestPath = "dest/a.nc"
	f.PublishType = model.PublishHarvestAddition.With(model.PublishUpload)

	collection := model.NewFileCollection()
	collection.Add(f)

	p := &Publisher{
		StoreBroker:    storeBroker,
		MatchHarvester: singleFileMatcher("waves"),
		Harvesters:     map[string]harvest.HarvesterRunner{"waves": h},
	}

	err := p.Publish(context.Background(), collection)
	require.Error(t, err)

	assert.False(t, f.IsHarvested, "harvest must be rolled back when the paired store write fails")
	assert.Equal(t, []string{"dest/a.nc"}, h.ingested)
	assert.Equal(t, []string{"dest/a.nc"}, h.removed, "rollback must submit a compensating harvester removal")
}

func TestPublishRollsBackEveryUnstoredHarvestOnStoreFailure(t *testing.T) {
	storeBroker := newFakeBroker()
	storeBroker.failPuts["dest/a.nc"] = true
	h := &fakeHarvester{name: "waves", supportsDel: true}

	first := model.NewPipelineFile("/tmp/a.nc", "a.nc")
	first.DestPath = "dest/a.nc"
	first.PublishType = model.PublishHarvestAddition.With(model.PublishUpload)

	second := model.NewPipelineFile("/tmp/b.nc", "b.nc")
	second.DestPath = "dest/b.nc"
	second.PublishType = model.PublishHarvestAddition.With(model.PublishUpload)

	collection := model.NewFileCollection()
	collection.Add(first)
	collection.Add(second)

	p := &Publisher{
		StoreBroker:    storeBroker,
		MatchHarvester: singleFileMatcher("waves"),
		Harvesters:     map[string]harvest.HarvesterRunner{"waves": h},
	}

	err := p.Publish(context.Background(), collection)
	require.Error(t, err)

	assert.False(t, first.IsHarvested)
	assert.False(t, second.IsHarvested,
		"a file harvested in the same call but never stored must also be rolled back")
	assert.ElementsMatch(t, []string{"dest/a.nc", "dest/b.nc"}, h.removed)
	assert.False(t, second.IsStored)
}

func TestPublishSkipsFailedChecks(t *testing.T) {
	storeBroker := newFakeBroker()

	f := model.NewPipelineFile("/tmp/bad.nc", "bad.nc")
	f.DestPath = "dest/bad.nc"
	f.PublishType = model.PublishUpload
	f.CheckPassed = model.CheckFailed

	collection := model.NewFileCollection()
	collection.Add(f)

	p := &Publisher{StoreBroker: storeBroker}
	require.NoError(t, p.Publish(context.Background(), collection))

	assert.False(t, f.IsStored)
	assert.False(t, storeBroker.objects["dest/bad.nc"])
}

func TestPublishArchiveWarnOnlyContinuesOnFailure(t *testing.T) {
	archiveBroker := newFakeBroker()
	archiveBroker.failPuts["archive/a.nc"] = true
	storeBroker := newFakeBroker()

	f := model.NewPipelineFile("/tmp/a.nc", "a.nc")
	f.ArchivePath = "archive/a.nc"
	f.DestPath = "dest/a.nc"
	f.PublishType = model.PublishArchive.With(model.PublishUpload)

	collection := model.NewFileCollection()
	collection.Add(f)

	p := &Publisher{
		ArchiveBroker: archiveBroker,
		StoreBroker:   storeBroker,
		ArchiveFatal:  false,
	}

	require.NoError(t, p.Publish(context.Background(), collection))
	assert.False(t, f.IsArchived)
	assert.True(t, f.IsStored, "a warn-only archive failure must not block the store phase")
}

func TestPublishRejectsUploadPlusDeleteWithoutLateDeletion(t *testing.T) {
	storeBroker := newFakeBroker()

	f := model.NewPipelineFile("/tmp/a.nc", "a.nc")
	f.DestPath = "dest/a.nc"
	f.PublishType = model.PublishUpload.With(model.PublishDelete)

	collection := model.NewFileCollection()
	collection.Add(f)

	p := &Publisher{StoreBroker: storeBroker}
	err := p.Publish(context.Background(), collection)
	require.Error(t, err)
	assert.True(t, pipelineerr.Is(err, pipelineerr.InvariantViolation))
	assert.False(t, f.IsStored, "no sink may be touched when validation fails")
}

func TestPublishFlagsOverwriteOfExistingObject(t *testing.T) {
	storeBroker := newFakeBroker()
	storeBroker.objects["dest/a.nc"] = true

	f := model.NewPipelineFile("/tmp/a.nc", "a.nc")
	f.DestPath = "dest/a.nc"
	f.PublishType = model.PublishUpload

	collection := model.NewFileCollection()
	collection.Add(f)

	p := &Publisher{StoreBroker: storeBroker}
	require.NoError(t, p.Publish(context.Background(), collection))

	assert.True(t, f.IsStored)
	assert.True(t, f.IsOverwrite, "a put over an existing object must be flagged as an overwrite")
}

func TestPublishFailsLoudlyWhenRollbackUnsupported(t *testing.T) {
	storeBroker := newFakeBroker()
	storeBroker.failPuts["dest/a.nc"] = true
	h := &fakeHarvester{name: "talend", supportsDel: false}

	f := model.NewPipelineFile("/tmp/a.nc", "a.nc")
	f.DestPath = "dest/a.nc"
	f.PublishType = model.PublishHarvestAddition.With(model.PublishUpload)

	collection := model.NewFileCollection()
	collection.Add(f)

	p := &Publisher{
		StoreBroker:    storeBroker,
		MatchHarvester: singleFileMatcher("talend"),
		Harvesters:     map[string]harvest.HarvesterRunner{"talend": h},
	}

	err := p.Publish(context.Background(), collection)
	require.Error(t, err)
	assert.True(t, pipelineerr.Is(err, pipelineerr.InvariantViolation),
		"a non-rollbackable harvester must surface the stale catalog entry as an invariant violation")
	assert.True(t, f.IsHarvested, "the flag stays set: the catalog entry genuinely still exists")
}

type txHarvester struct {
	fakeHarvester
	txAdds []string
	txDels []string
}

func (h *txHarvester) IngestAndRemove(additions, deletions *model.FileCollection) error {
	for _, f := range additions.All() {
		h.txAdds = append(h.txAdds, f.DestPath)
	}
	for _, f := range deletions.All() {
		h.txDels = append(h.txDels, f.DestPath)
	}
	return nil
}

func TestPublishMixedGroupUsesSingleHarvesterTransaction(t *testing.T) {
	h := &txHarvester{fakeHarvester: fakeHarvester{name: "waves", supportsDel: true}}

	add := model.NewPipelineFile("/tmp/a.nc", "a.nc")
	add.DestPath = "dest/a.nc"
	add.PublishType = model.PublishHarvestAddition

	del := model.NewPipelineFile("/tmp/b.nc", "b.nc")
	del.DestPath = "dest/b.nc"
	del.PublishType = model.PublishHarvestDeletion

	collection := model.NewFileCollection()
	collection.Add(add)
	collection.Add(del)

	p := &Publisher{
		MatchHarvester: singleFileMatcher("waves"),
		Harvesters:     map[string]harvest.HarvesterRunner{"waves": h},
	}

	require.NoError(t, p.Publish(context.Background(), collection))

	assert.Equal(t, []string{"dest/a.nc"}, h.txAdds)
	assert.Equal(t, []string{"dest/b.nc"}, h.txDels)
	assert.Empty(t, h.ingested, "the non-transactional path must not also run")
	assert.True(t, add.IsHarvested)
	assert.True(t, del.IsHarvested)
}

func TestPublishLateDeletionDeletesEffectiveTarget(t *testing.T) {
	storeBroker := newFakeBroker()
	storeBroker.objects["dest/old.nc"] = true

	f := model.NewPipelineFile("/tmp/a.nc", "a.nc")
	f.DestPath = "dest/a.nc"
	f.DeleteTargetPath = "dest/old.nc"
	f.LateDeletion = true
	f.PublishType = model.PublishUpload.With(model.PublishDelete)

	collection := model.NewFileCollection()
	collection.Add(f)

	p := &Publisher{StoreBroker: storeBroker}
	require.NoError(t, p.Publish(context.Background(), collection))

	assert.True(t, storeBroker.objects["dest/a.nc"])
	assert.False(t, storeBroker.objects["dest/old.nc"])
}
