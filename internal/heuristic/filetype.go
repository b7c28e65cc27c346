// Package heuristic contains the pure inference functions of the import
// engine: file-type detection, category suggestion, card auto-identification,
// ambiguous-date repair and in-batch duplicate marking.
//
// Nenhuma função aqui faz I/O, usa relógio ou aleatoriedade — tudo é
// determinístico dado o input, para que o orquestrador e os testes possam
// compor livremente.
package heuristic

import (
	"path/filepath"
	"strings"
)

// Tipos de arquivo aceitos pelo extrator.
const (
	FilePDF   = "pdf"
	FileXLSX  = "xlsx"
	FileCSV   = "csv"
	FileImage = "image"
)

// DetectFileType maps a file name's extension to the extractor input type.
// Unknown extensions default to image — the most permissive extractor path
// (fotos de comprovante chegam com as extensões mais variadas).
// Total function: never fails.
func DetectFileType(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".pdf":
		return FilePDF
	case ".xlsx", ".xls":
		return FileXLSX
	case ".csv":
		return FileCSV
	default:
		return FileImage
	}
}

// MIMEType returns the MIME type sent to the extractor for a detected file
// type. Image is reported as JPEG; multimodal extractors sniff the real
// encoding from the bytes anyway.
func MIMEType(fileType string) string {
	switch fileType {
	case FilePDF:
		return "application/pdf"
	case FileXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FileCSV:
		return "text/csv"
	default:
		return "image/jpeg"
	}
}
