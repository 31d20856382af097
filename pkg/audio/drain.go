package audio

// Drain reads from ch until the channel is closed, discarding all values.
// It keeps a producer such as a [Capturer] from blocking or dropping frames
// once the consumer has stopped reading.
func Drain[T any](ch <-chan T) {
	for range ch {
	}
}
