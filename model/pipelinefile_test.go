package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateForPublishRejectsFailedCheck(t *testing.T) {
	f := NewPipelineFile("/tmp/bad.nc", "bad.nc")
	f.CheckPassed = CheckFailed
	f.PublishType = PublishUpload

	assert.Error(t, f.ValidateForPublish())
}

func TestValidateForPublishRejectsUploadPlusDeleteWithoutLateDeletion(t *testing.T) {
	f := NewPipelineFile("/tmp/a.nc", "a.nc")
	f.PublishType = PublishUpload.With(PublishDelete)

	require.Error(t, f.ValidateForPublish())

	f.LateDeletion = true
	assert.NoError(t, f.ValidateForPublish())
}

func TestEffectiveDeleteTargetPathDefaultsToDestPath(t *testing.T) {
	f := NewPipelineFile("/tmp/a.nc", "a.nc")
	f.DestPath = "dest/a.nc"
	assert.Equal(t, "dest/a.nc", f.EffectiveDeleteTargetPath())

	f.DeleteTargetPath = "dest/old.nc"
	assert.Equal(t, "dest/old.nc", f.EffectiveDeleteTargetPath())
}

func TestRollbackHarvestRevertsFlag(t *testing.T) {
	f := NewPipelineFile("/tmp/a.nc", "a.nc")
	f.IsHarvested = true
	f.RollbackHarvest()
	assert.False(t, f.IsHarvested)
}

func TestPublishTypeStringRendersSetBits(t *testing.T) {
	assert.Equal(t, "none", PublishNone.String())
	assert.Equal(t, "archive|upload", PublishArchive.With(PublishUpload).String())
}

func TestHandlerStateBeginRejectsSecondCall(t *testing.T) {
	s := NewHandlerState(nil, nil, "h", "/tmp/in.nc", "/tmp/scratch")
	assert.True(t, s.Begin())
	assert.False(t, s.Begin())
}
