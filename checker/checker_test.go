package checker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aodn/pipeline/model"
)

func writeTemp(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestCheckerDispatchesComplianceSuiteForNetCDF(t *testing.T) {
	good := writeTemp(t, "good.nc", []byte("CDF\x01garbage"))
	pf := model.NewPipelineFile(good, "good.nc")
	pf.FileType = model.FileTypeNetCDF

	c := &Checker{Suites: []ComplianceSuite{CFComplianceSuite{}}}
	c.CheckFile(pf)

	assert.Equal(t, model.CheckTypeComplianceSuite, pf.CheckType)
	assert.Equal(t, model.CheckPassedOK, pf.CheckPassed)
}

func TestCheckerFailsCompliantSuiteOnBadMagic(t *testing.T) {
	bad := writeTemp(t, "bad.nc", []byte("not-a-netcdf-file"))
	pf := model.NewPipelineFile(bad, "bad.nc")
	pf.FileType = model.FileTypeNetCDF

	c := &Checker{Suites: []ComplianceSuite{CFComplianceSuite{}}}
	c.CheckFile(pf)

	assert.Equal(t, model.CheckFailed, pf.CheckPassed)
	assert.NotEmpty(t, pf.CheckResult.Log)
}

func TestCheckerFallsBackToFormatWithoutSuites(t *testing.T) {
	pdf := writeTemp(t, "file.pdf", []byte("%PDF-1.4\n..."))
	pf := model.NewPipelineFile(pdf, "file.pdf")
	pf.FileType = model.FileTypePDF

	c := &Checker{}
	c.CheckFile(pf)

	assert.Equal(t, model.CheckTypeFormat, pf.CheckType)
	assert.Equal(t, model.CheckPassedOK, pf.CheckPassed)
}

func TestCheckerFallsBackToNonEmptyForUnknownType(t *testing.T) {
	unknown := writeTemp(t, "data.xyz", []byte("some bytes"))
	pf := model.NewPipelineFile(unknown, "data.xyz")

	c := &Checker{}
	c.CheckFile(pf)

	assert.Equal(t, model.CheckTypeNonEmpty, pf.CheckType)
	assert.Equal(t, model.CheckPassedOK, pf.CheckPassed)
}

func TestCheckAllReportsAnyFailure(t *testing.T) {
	good := writeTemp(t, "good.nc", []byte("CDF\x01ok"))
	bad := writeTemp(t, "bad.nc", []byte("nope"))

	collection := model.NewFileCollection()
	gf := model.NewPipelineFile(good, "good.nc")
	gf.FileType = model.FileTypeNetCDF
	collection.Add(gf)
	bf := model.NewPipelineFile(bad, "bad.nc")
	bf.FileType = model.FileTypeNetCDF
	collection.Add(bf)

	c := &Checker{Suites: []ComplianceSuite{CFComplianceSuite{}}}
	anyFailed := c.CheckAll(collection)

	assert.True(t, anyFailed)
	assert.Equal(t, model.CheckPassedOK, gf.CheckPassed)
	assert.Equal(t, model.CheckFailed, bf.CheckPassed)
}
