package camera

import "bytes"

var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

// FrameSplitter はMJPEGのバイトストリームを個々のJPEGフレームに分割する
// 任意の位置で区切られたチャンクを受け付ける
type FrameSplitter struct {
	buf bytes.Buffer
}

// Write はチャンクを追加し、完成したフレームを返す
func (s *FrameSplitter) Write(chunk []byte) [][]byte {
	s.buf.Write(chunk)

	var frames [][]byte
	data := s.buf.Bytes()
	for {
		// JPEGの開始マーカー（FF D8）を探す
		startIdx := bytes.Index(data, jpegSOI)
		if startIdx == -1 {
			// マーカーが分割されている可能性があるので最後の1バイトだけ残す
			if n := len(data); n > 0 && data[n-1] == 0xFF {
				data = data[n-1:]
			} else {
				data = nil
			}
			break
		}

		// JPEGの終了マーカー（FF D9）を探す
		endIdx := bytes.Index(data[startIdx+2:], jpegEOI)
		if endIdx == -1 {
			data = data[startIdx:]
			break
		}

		// マーカーのサイズを含める
		endIdx += startIdx + 2 + 2
		frame := make([]byte, endIdx-startIdx)
		copy(frame, data[startIdx:endIdx])
		frames = append(frames, frame)

		data = data[endIdx:]
	}

	// 未処理のデータだけを残す
	rest := make([]byte, len(data))
	copy(rest, data)
	s.buf.Reset()
	s.buf.Write(rest)

	return frames
}

// Buffered は未完成フレームとして保持しているバイト数を返す
func (s *FrameSplitter) Buffered() int {
	return s.buf.Len()
}
