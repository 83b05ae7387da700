package host

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/tlul/clock"
	"github.com/sarchlab/tlul/tlul"
)

var _ = Describe("Host", func() {
	var (
		layout *tlul.Layout
		clk    *clock.Clock
		device *scriptedDevice
		h      *Host
		cancel context.CancelFunc
		runErr chan error
	)

	BeforeEach(func() {
		layout = tlul.DefaultLayout()
		clk = clock.MakeBuilder().WithResetDuration(0).Build("Clock")
		device = newScriptedDevice(layout)
		h = MakeBuilder().
			WithLayout(layout).
			WithBus(device).
			WithClock(clk).
			Build("Host")
		clk.AddListener(device)

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		runErr = make(chan error, 1)

		go func() {
			runErr <- clk.Run(ctx)
		}()
	})

	AfterEach(func() {
		cancel()
		clk.Wake()
		Eventually(runErr).Should(Receive())
	})

	It("should put a word and return to idle", func() {
		rsp, err := h.Put(context.Background(), 0x4, 0xDEADBEEF, 0xF)

		Expect(err).NotTo(HaveOccurred())
		Expect(rsp.Opcode).To(Equal(tlul.AccessAck))
		Expect(h.Controller().State()).To(Equal(StateIdle))

		accepted := device.acceptedRequests()
		Expect(accepted).To(HaveLen(1))
		Expect(accepted[0].Opcode).To(Equal(tlul.PutFullData))
		Expect(accepted[0].Data).To(Equal(uint64(0xDEADBEEF)))
	})

	It("should issue a partial put for a partial mask", func() {
		_, err := h.Put(context.Background(), 0x8, 0xBEEF, 0x3)

		Expect(err).NotTo(HaveOccurred())
		Expect(device.acceptedRequests()[0].Opcode).
			To(Equal(tlul.PutPartialData))
	})

	It("should get a word", func() {
		data, err := h.Get(context.Background(), 0x10)

		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal(uint64(0xCAFEF00D)))
	})

	It("should serve sequential calls", func() {
		for i := uint64(0); i < 4; i++ {
			_, err := h.Put(context.Background(), i*4, i, 0xF)
			Expect(err).NotTo(HaveOccurred())
		}

		Expect(device.acceptedRequests()).To(HaveLen(4))
	})
})

var _ = Describe("Host with a slow device", func() {
	var (
		clk    *clock.Clock
		device *scriptedDevice
		h      *Host
		cancel context.CancelFunc
		runErr chan error
	)

	BeforeEach(func() {
		layout := tlul.DefaultLayout()
		clk = clock.MakeBuilder().WithResetDuration(0).Build("Clock")
		device = newScriptedDevice(layout)
		h = MakeBuilder().
			WithLayout(layout).
			WithBus(device).
			WithClock(clk).
			WithMaxResponseWaitCycles(0).
			Build("Host")
		clk.AddListener(device)

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		runErr = make(chan error, 1)

		go func() {
			runErr <- clk.Run(ctx)
		}()
	})

	AfterEach(func() {
		cancel()
		clk.Wake()
		Eventually(runErr).Should(Receive())
	})

	It("should serve the next call after a cancelled one", func() {
		device.setSilent(true)

		ctx, cancelGet := context.WithCancel(context.Background())
		errCh := make(chan error, 1)

		go func() {
			_, err := h.Get(ctx, 0x0)
			errCh <- err
		}()

		Eventually(h.Controller().State).
			Should(Equal(StateAwaitingResponse))
		cancelGet()

		var err error
		Eventually(errCh).Should(Receive(&err))

		var aborted *tlul.OperationAbortedError
		Expect(errors.As(err, &aborted)).To(BeTrue())

		device.setSilent(false)
		clk.Wake()

		data, err := h.Get(context.Background(), 0x4)

		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal(uint64(0xCAFEF00D)))
		Expect(device.acceptedRequests()).To(HaveLen(2))
		Eventually(device.ackCount).Should(Equal(2))
	})
})

var _ = Describe("Host without a clock", func() {
	var (
		mockCtrl *gomock.Controller
		waker    *MockWaker
		device   *scriptedDevice
		h        *Host
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		waker = NewMockWaker(mockCtrl)
		waker.EXPECT().Wake().AnyTimes()
		device = newScriptedDevice(tlul.DefaultLayout())
		h = MakeBuilder().WithBus(device).WithWaker(waker).Build("Host")
	})

	It("should abort when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := h.Get(ctx, 0x0)

		var aborted *tlul.OperationAbortedError
		Expect(errors.As(err, &aborted)).To(BeTrue())
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(h.Controller().State()).To(Equal(StateIdle))
	})

	It("should return request errors synchronously", func() {
		_, err := h.Put(context.Background(), 0x1, 0, 0xF)

		var reqErr *tlul.RequestError
		Expect(errors.As(err, &reqErr)).To(BeTrue())
	})

	It("should fail after close", func() {
		h.Close()

		_, err := h.Get(context.Background(), 0x0)

		Expect(errors.Is(err, ErrClosed)).To(BeTrue())
	})

	It("should panic without a bus", func() {
		Expect(func() { MakeBuilder().Build("Host") }).To(Panic())
	})
})
