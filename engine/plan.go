package engine

// PlanChunks partitions [0, totalSize) into at most streams chunks. The
// partition is deterministic: all chunks but the last are
// ceil(totalSize/streams) bytes, the last holds the remainder, and the
// chunk count never exceeds max(1, totalSize). A zero totalSize yields
// one zero-length chunk so an empty destination file is still produced.
func PlanChunks(totalSize int64, streams int) []Chunk {
	if streams < 1 {
		streams = 1
	}
	if totalSize <= 0 {
		return []Chunk{{Index: 0, Offset: 0, Length: 0, State: ChunkPending}}
	}

	chunkLen := (totalSize + int64(streams) - 1) / int64(streams)
	count := (totalSize + chunkLen - 1) / chunkLen

	chunks := make([]Chunk, 0, count)
	for i := int64(0); i < count; i++ {
		offset := i * chunkLen
		length := chunkLen
		if offset+length > totalSize {
			length = totalSize - offset
		}
		chunks = append(chunks, Chunk{
			Index:  int(i),
			Offset: offset,
			Length: length,
			State:  ChunkPending,
		})
	}
	return chunks
}
