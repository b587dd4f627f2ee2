package ports

// OutputSink - терминал оператора. Передаётся программатору для вывода статуса.
type OutputSink interface {
	Clean()
	WriteLine(text string)
	Write(text string)
}
