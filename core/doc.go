// Package core reads the object layer of a PDF file.
//
// All input is held in memory. A [Scanner] reads objects from a byte slice
// and serves file bodies, object streams and, with [WithoutRefs], content
// streams. A [Parser] reads indirect objects at a file offset, including
// stream bodies whose /Length is wrong or indirect.
//
// # Object Types
//
// The eight basic object types are [Null], [Bool], [Int], [Real], [String],
// [Name], [Array] and [Dict]. [Stream] and [IndirectRef] complete the set.
//
// # Cross-Reference Data
//
// [ReadXRef] follows startxref and the /Prev chain through every
// incremental update, reading classic tables, cross-reference streams and
// hybrid files. The merged [XRefTable] gives the newest location of each
// object. When that fails, [RepairXRef] rebuilds a table by scanning the
// file for "n g obj" headers.
//
// # Object Streams
//
// [ObjectStream] holds the objects of a /Type /ObjStm stream, addressed by
// index or object number.
//
// # Stream Decoding
//
// [Stream.Decode] applies the /Filter chain using the filters in
// internal/filters: Flate, LZW, ASCIIHex, ASCII85, RunLength and CCITT fax,
// with PNG and TIFF predictors.
package core
