// Package reader opens PDF files and resolves their objects.
//
// The whole file is read into memory:
//
//	r, err := reader.Open("document.pdf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
//	page, err := r.GetPage(0)
//
// Cross-reference tables and streams are read through every incremental
// update. A file whose cross-reference data is missing or broken is
// repaired by scanning for object headers; [Reader.Repaired] reports it.
// Objects inside object streams are loaded transparently, and every loaded
// object is cached. A Reader is safe for concurrent use.
//
// Image XObjects can be decoded with [Reader.DecodeImage] or listed per
// page with [Reader.ExtractPageImages].
package reader
