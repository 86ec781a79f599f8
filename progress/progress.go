package progress

// Event 进度事件，一次修复流程内 Percent 单调不减
type Event struct {
	Percent     int
	Message     string
	BytesLoaded int64 // 模型下载阶段的已接收字节数，其余阶段为 0
}

// Func 进度回调，消费方需容忍被调用零次或多次
type Func func(Event)

// Nop 丢弃所有进度事件
func Nop(Event) {}
