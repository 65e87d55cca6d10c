// Package serializer converts between common.Message values and the binary wire
// format of the file store. All integers are 32 bit little endian.
//
// Requests start with the opcode, the length of the database name (one byte) and the
// UTF-8 database name, followed by:
//
//	Get, GetLast     key1, key2
//	GetFileVersion   key
//	Set              dbVersion, bzip2(count, {key, length, data}*)
//
// Responses start with a status byte. Status 0 is followed by the body, status 2 by
// an UTF-8 error message:
//
//	Get              dbVersion, count, {fileVersion, key, length, data}*
//	GetLast          dbVersion, present (0/1), [fileVersion, key, length, data]
//	GetFileVersion   dbVersion, fileVersion (0 means absent)
//	Set              (empty)
//
// Every decode has to consume its buffer exactly. A buffer with bytes left over or
// one that ends early is rejected with a common.ErrCFraming error.
//
// The write set of a Set request is compressed with bzip2 at the highest level
// (github.com/dsnet/compress, the standard library can only decompress bzip2).
//
// Thread Safety:
//
//	The serializer is stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
//
// Usage:
//
//	s := serializer.NewBinarySerializer()
//	data, err := s.SerializeRequest(*common.NewGetRequest("db", 1, 5))
//	// ... send data, receive respData ...
//	var resp common.Message
//	err = s.DeserializeResponse(common.OpGet, respData, &resp)
package serializer
