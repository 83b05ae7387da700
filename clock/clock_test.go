package clock

import (
	"context"
	"fmt"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tlul/sim/hooking"
	"github.com/sarchlab/tlul/sim/timing"
)

type recordingListener struct {
	lock      sync.Mutex
	name      string
	log       *[]string
	times     []timing.VTimeInSec
	engine    timing.TimeTeller
	drives    int
	busyLeft  int
	resetSeen []bool
}

func (l *recordingListener) record(s string) {
	if l.log != nil {
		*l.log = append(*l.log, s)
	}
}

func edgeName(e Edge) string {
	if e.Kind == Rising {
		return fmt.Sprintf("R%d", e.Cycle)
	}

	return fmt.Sprintf("F%d", e.Cycle)
}

func (l *recordingListener) Sample(e Edge) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.record(l.name + " sample " + edgeName(e))

	if l.engine != nil {
		l.times = append(l.times, l.engine.Now())
	}
}

func (l *recordingListener) Drive(e Edge) bool {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.record(l.name + " drive " + edgeName(e))
	l.drives++

	if l.busyLeft > 0 {
		l.busyLeft--
		return true
	}

	return false
}

func (l *recordingListener) Reset(asserted bool) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.record(fmt.Sprintf("%s reset %v", l.name, asserted))
	l.resetSeen = append(l.resetSeen, asserted)
}

func (l *recordingListener) driveCount() int {
	l.lock.Lock()
	defer l.lock.Unlock()

	return l.drives
}

func (l *recordingListener) setBusy(n int) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.busyLeft = n
}

var _ = Describe("Clock", func() {
	var (
		log []string
		a   *recordingListener
		b   *recordingListener
	)

	BeforeEach(func() {
		log = nil
		a = &recordingListener{name: "a", log: &log}
		b = &recordingListener{name: "b", log: &log}
	})

	It("should hold reset for the configured duration", func() {
		c := MakeBuilder().
			WithFreq(100 * timing.MHz).
			WithResetDuration(50e-9).
			Build("Clock")
		c.AddListener(a)

		Expect(c.RunCycles(6)).To(Succeed())

		Expect(log).To(Equal([]string{
			"a reset true",
			"a reset false",
			"a sample R5",
			"a drive R5",
			"a sample F5",
			"a drive F5",
		}))
		Expect(c.Cycle()).To(Equal(uint64(5)))
		Expect(c.InReset()).To(BeFalse())
	})

	It("should sample on every listener before driving", func() {
		c := MakeBuilder().WithResetDuration(0).Build("Clock")
		c.AddListener(a)
		c.AddListener(b)

		Expect(c.RunCycles(1)).To(Succeed())

		Expect(log).To(Equal([]string{
			"a sample R0",
			"b sample R0",
			"a drive R0",
			"b drive R0",
			"a sample F0",
			"b sample F0",
			"a drive F0",
			"b drive F0",
		}))
	})

	It("should place edges at whole and half periods", func() {
		c := MakeBuilder().
			WithPeriod(10e-9).
			WithResetDuration(0).
			Build("Clock")
		a.engine = c.Engine()
		c.AddListener(a)

		Expect(c.RunCycles(2)).To(Succeed())

		Expect(a.times).To(HaveLen(4))
		Expect(a.times[0]).To(BeNumerically("~", 0, 1e-15))
		Expect(a.times[1]).To(BeNumerically("~", 5e-9, 1e-15))
		Expect(a.times[2]).To(BeNumerically("~", 10e-9, 1e-15))
		Expect(a.times[3]).To(BeNumerically("~", 15e-9, 1e-15))
	})

	It("should continue from where the previous run stopped", func() {
		c := MakeBuilder().WithResetDuration(0).Build("Clock")
		c.AddListener(a)

		Expect(c.RunCycles(1)).To(Succeed())
		log = nil
		Expect(c.RunCycles(1)).To(Succeed())

		Expect(log).To(Equal([]string{
			"a sample R1", "a drive R1", "a sample F1", "a drive F1",
		}))
	})

	It("should assert reset on request", func() {
		c := MakeBuilder().WithResetDuration(0).Build("Clock")
		c.AddListener(a)

		Expect(c.RunCycles(2)).To(Succeed())
		log = nil

		c.AssertReset(2)
		Expect(c.RunCycles(4)).To(Succeed())

		Expect(log).To(Equal([]string{
			"a reset true",
			"a reset false",
			"a sample R4",
			"a drive R4",
			"a sample F4",
			"a drive F4",
			"a sample R5",
			"a drive R5",
			"a sample F5",
			"a drive F5",
		}))
	})

	It("should invoke edge hooks", func() {
		c := MakeBuilder().WithResetDuration(0).Build("Clock")

		var edges []Edge
		c.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			if ctx.Pos == HookPosEdge {
				edges = append(edges, ctx.Item.(Edge))
			}
		}))

		Expect(c.RunCycles(1)).To(Succeed())

		Expect(edges).To(Equal([]Edge{
			{Kind: Rising, Cycle: 0},
			{Kind: Falling, Cycle: 0},
		}))
	})

	It("should sleep when idle and resume on wake", func() {
		c := MakeBuilder().WithResetDuration(0).Build("Clock")
		a.log = nil
		a.setBusy(4)
		c.AddListener(a)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)

		go func() {
			errCh <- c.Run(ctx)
		}()

		Eventually(a.driveCount).Should(Equal(5))
		Consistently(a.driveCount).Should(Equal(5))

		a.setBusy(2)
		c.Wake()

		Eventually(a.driveCount).Should(Equal(8))

		cancel()
		c.Wake()

		Eventually(errCh).Should(Receive(MatchError(context.Canceled)))
	})

	It("should report reset to other goroutines while running", func() {
		c := MakeBuilder().WithResetDuration(50e-9).Build("Clock")
		a.log = nil
		c.AddListener(a)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)

		go func() {
			errCh <- c.Run(ctx)
		}()

		resetReleased := func() bool {
			a.lock.Lock()
			defer a.lock.Unlock()

			n := len(a.resetSeen)
			return n > 0 && !a.resetSeen[n-1]
		}

		Eventually(func() bool {
			c.InReset()
			return resetReleased()
		}).Should(BeTrue())
		Expect(c.InReset()).To(BeFalse())

		c.AssertReset(3)
		Eventually(resetReleased).Should(BeTrue())
		Eventually(c.InReset).Should(BeFalse())

		cancel()
		c.Wake()

		Eventually(errCh).Should(Receive(MatchError(context.Canceled)))
	})
})

var _ = Describe("EdgeKind", func() {
	It("should parse edge names", func() {
		k, err := ParseEdgeKind("falling")

		Expect(err).NotTo(HaveOccurred())
		Expect(k).To(Equal(Falling))
		Expect(k.Opposite()).To(Equal(Rising))
		Expect(k.String()).To(Equal("falling"))

		_, err = ParseEdgeKind("sideways")
		Expect(err).To(HaveOccurred())
	})
})
