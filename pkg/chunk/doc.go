// Package chunk encodes and decodes the framing of an fbt container stream.
//
// # Stream Format
//
// A stream starts with a 12 byte header followed by a sequence of chunks:
//
//	[Tag(7)][PointerWidth(1)][ByteOrder(1)][Version(3)]
//	[Chunk][Chunk]...[DNA1 chunk][ENDB chunk]
//
// Fields:
//   - Tag: producer identification, 7 ASCII bytes (for example "BLENDER")
//   - PointerWidth: '_' for 32-bit producers, '-' for 64-bit producers
//   - ByteOrder: 'v' for little-endian producers, 'V' for big-endian producers
//   - Version: three ASCII digits
//
// # Chunk Format
//
// Every chunk is a fixed header followed by Length payload bytes. The
// address field has the producer's pointer width, so the header is 20 or
// 24 bytes long:
//
//	[Code(4)][Length(4)][Address(4|8)][StructIndex(4)][Count(4)][Payload]
//
// Fields:
//   - Code: four character block code ("DNA1", "ENDB") or a two character
//     record code ("OB", "ME") packed into the low half
//   - Length: payload length in bytes; 0xFFFFFFFF is never valid
//   - Address: the address the block had in the producer's memory, used only
//     as a lookup key when pointers are resolved
//   - StructIndex: index of the payload's record type in the embedded schema
//   - Count: number of records in the payload
//
// Multi-byte fields are stored in the producer's byte order. A 64-bit address
// is stored as two 32-bit halves, low half first, each in producer byte order.
//
// # Layout Translation
//
// A Codec translates headers between a producer (File) layout and the reading
// program's (Host) layout. Addresses are widened when the producer is 32-bit
// and the host 64-bit, and narrowed to their low 32 bits in the opposite case.
//
//	codec := chunk.NewCodec(stream.Layout, chunk.NativeLayout())
//	header, err := codec.Decode(buf[:codec.Size()])
//	if err != nil {
//	    return err
//	}
package chunk
