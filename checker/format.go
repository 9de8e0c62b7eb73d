package checker

import (
	"bytes"
	"fmt"
	"os"

	"github.com/aodn/pipeline/model"
)

// CheckFormat runs a structural, magic-number-level validation for a file
// whose extension is recognised but for which no compliance suite applies
// (spec.md §4.4 tier 2: "if file type is known, run a format-only
// structural validation"). STDLIB JUSTIFICATION: no port of the IOOS
// Compliance Checker or any CF-compliance validator exists in the example
// pack or is a well-known ecosystem package; the runner performs its own
// magic-number sniff rather than delegating to a missing third-party
// validator, per original_source steps/check.py's equivalent
// FormatCheckRunner.
func CheckFormat(localPath string, fileType model.FileType) model.CheckResult {
	f, err := os.Open(localPath)
	if err != nil {
		return model.CheckResult{Errored: true, Log: []string{err.Error()}}
	}
	defer f.Close()

	header := make([]byte, 8)
	n, err := f.Read(header)
	if err != nil && n == 0 {
		return model.CheckResult{Errored: true, Log: []string{fmt.Sprintf("unable to read header: %v", err)}}
	}
	header = header[:n]

	switch fileType {
	case model.FileTypeNetCDF:
		return checkNetCDFHeader(header)
	case model.FileTypePDF:
		return checkPDFHeader(header)
	case model.FileTypeCSV:
		return checkCSVReadable(localPath)
	default:
		return model.CheckResult{Compliant: true}
	}
}

// netCDF classic and HDF5-based files both start with a 4-byte magic:
// "CDF\x01"/"CDF\x02" (classic) or "\x89HDF" (netCDF-4/HDF5 container).
func checkNetCDFHeader(header []byte) model.CheckResult {
	if len(header) < 4 {
		return model.CheckResult{Compliant: false, Log: []string{"file too short to contain a NetCDF header"}}
	}

	classic := bytes.HasPrefix(header, []byte("CDF"))
	hdf5 := bytes.Equal(header[:4], []byte{0x89, 'H', 'D', 'F'})
	if !classic && !hdf5 {
		return model.CheckResult{Compliant: false, Log: []string{"missing NetCDF/HDF5 magic number"}}
	}
	return model.CheckResult{Compliant: true}
}

func checkPDFHeader(header []byte) model.CheckResult {
	if !bytes.HasPrefix(header, []byte("%PDF-")) {
		return model.CheckResult{Compliant: false, Log: []string{"missing %PDF- magic number"}}
	}
	return model.CheckResult{Compliant: true}
}

func checkCSVReadable(localPath string) model.CheckResult {
	f, err := os.Open(localPath)
	if err != nil {
		return model.CheckResult{Errored: true, Log: []string{err.Error()}}
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return model.CheckResult{Compliant: false, Log: []string{"empty CSV file"}}
	}
	if bytes.IndexByte(buf[:n], 0) >= 0 {
		return model.CheckResult{Compliant: false, Log: []string{"CSV file contains NUL bytes, likely not text"}}
	}
	return model.CheckResult{Compliant: true}
}
