// Package transfer implements the chunked transfer engine: a bounded
// worker pool performing encrypt+upload / fetch+decrypt / delete operations
// against the remote object store, and the upload, download and deletion
// pipelines that drive it.
package transfer

// DefaultChunkSize is 9.5 MiB. The remote platform caps attachments at
// 10 MiB, so staying 0.5 MiB under the cap leaves headroom for the IV and
// protocol overhead.
const DefaultChunkSize int64 = 9*1024*1024 + 512*1024

// ChunkCount returns ceil(totalSize / chunkSize), the number of chunks a
// file of totalSize splits into. Zero for empty files or invalid sizes.
func ChunkCount(totalSize, chunkSize int64) int {
	if totalSize <= 0 || chunkSize <= 0 {
		return 0
	}
	return int((totalSize + chunkSize - 1) / chunkSize)
}

// ChunkRange returns the byte range [start, end) covered by the chunk at
// index. The final chunk is truncated to the file size.
func ChunkRange(index int, totalSize, chunkSize int64) (start, end int64) {
	start = int64(index) * chunkSize
	end = start + chunkSize
	if end > totalSize {
		end = totalSize
	}
	return start, end
}
