package sigchan

import "testing"

// Emit 满缓冲时不能阻塞，多次触发合并成一次信号
func TestEmitCoalesces(t *testing.T) {
	c := New(1)
	for i := 0; i < 100; i++ {
		c.Emit()
	}

	select {
	case <-c.C():
	default:
		t.Fatal("期望至少有一个信号")
	}
	select {
	case <-c.C():
		t.Error("多余的触发应该被合并掉")
	default:
	}
}

func TestEmitAfterDrain(t *testing.T) {
	c := New(1)
	c.Emit()
	<-c.C()

	c.Emit()
	select {
	case <-c.C():
	default:
		t.Fatal("消费之后再触发应该有信号")
	}
}
