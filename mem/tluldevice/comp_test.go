package tluldevice

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tlul/clock"
	"github.com/sarchlab/tlul/sim/hooking"
	"github.com/sarchlab/tlul/tlul"
	"github.com/sarchlab/tlul/tlul/host"
)

var _ = Describe("Comp", func() {
	var (
		layout *tlul.Layout
		dev    *Comp
	)

	step := func(cycle uint64) bool {
		e := clock.Edge{Kind: clock.Rising, Cycle: cycle}
		dev.Sample(e)

		return dev.Drive(e)
	}

	driveA := func(req tlul.Request, aValid, dReady bool) {
		buf, err := layout.EncodeA(req, aValid, dReady)
		Expect(err).NotTo(HaveOccurred())
		dev.SetHostToDevice(buf)
	}

	output := func() tlul.DBeat {
		beat, err := layout.DecodeD(dev.DeviceToHost())
		Expect(err).NotTo(HaveOccurred())

		return beat
	}

	BeforeEach(func() {
		layout = tlul.DefaultLayout()
	})

	Context("when driven directly", func() {
		BeforeEach(func() {
			dev = MakeBuilder().
				WithLayout(layout).
				WithLatency(0).
				WithReadyLatency(2).
				WithNewStorage(64).
				WithSinkID(1).
				Build("Mem")
		})

		It("should be ready after build", func() {
			Expect(output().AReady).To(BeTrue())
			Expect(output().Valid).To(BeFalse())
		})

		It("should flag a misaligned request", func() {
			driveA(tlul.Request{
				Opcode: tlul.Get, Size: 2, Address: 0x2, Mask: 0xF, Source: 7,
			}, true, false)

			Expect(step(0)).To(BeTrue())

			beat := output()
			Expect(beat.Valid).To(BeTrue())
			Expect(beat.AReady).To(BeFalse())
			Expect(beat.Response.Error).To(BeTrue())
			Expect(beat.Response.Opcode).To(Equal(tlul.AccessAckData))
			Expect(beat.Response.Source).To(Equal(uint32(7)))
			Expect(beat.Response.Sink).To(Equal(uint32(1)))
			Expect(dev.Errors()).To(Equal(uint64(1)))
		})

		It("should hold the response until d_ready", func() {
			driveA(tlul.GetReqBuilder{}.
				WithAddress(0x4).WithSize(2).WithMask(0xF).Build(),
				true, false)
			step(0)

			driveA(tlul.Request{}, false, false)
			step(1)
			step(2)
			Expect(output().Valid).To(BeTrue())

			driveA(tlul.Request{}, false, true)
			Expect(step(3)).To(BeTrue())
			Expect(output().Valid).To(BeFalse())
			Expect(output().AReady).To(BeFalse())

			Expect(step(4)).To(BeTrue())
			Expect(output().AReady).To(BeFalse())

			Expect(step(5)).To(BeFalse())
			Expect(output().AReady).To(BeTrue())
		})

		It("should hold a_ready low during reset", func() {
			dev.Reset(true)
			Expect(output().AReady).To(BeFalse())
			Expect(dev.Drive(clock.Edge{Kind: clock.Rising})).To(BeFalse())

			dev.Reset(false)
			Expect(output().AReady).To(BeFalse())
			step(0)
			step(1)
			Expect(output().AReady).To(BeFalse())
			step(2)
			Expect(output().AReady).To(BeTrue())
		})

		It("should ignore the other edge", func() {
			driveA(tlul.GetReqBuilder{}.
				WithAddress(0x4).WithSize(2).WithMask(0xF).Build(),
				true, false)

			dev.Sample(clock.Edge{Kind: clock.Falling})

			Expect(dev.Served()).To(BeZero())
		})

		It("should report accesses to hooks", func() {
			var accesses []Access
			dev.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
				accesses = append(accesses, ctx.Item.(Access))
			}))

			driveA(tlul.PutReqBuilder{}.
				WithAddress(0x8).WithSize(2).WithData(0x1234).
				WithMask(0xF).WithFullMask(0xF).Build(),
				true, false)
			step(9)

			Expect(accesses).To(HaveLen(1))
			Expect(accesses[0].Cycle).To(Equal(uint64(9)))
			Expect(accesses[0].Request.Address).To(Equal(uint64(0x8)))
			Expect(accesses[0].Response.Opcode).To(Equal(tlul.AccessAck))
		})
	})

	Context("when connected to a host", func() {
		var (
			clk  *clock.Clock
			ctrl *host.Controller
		)

		do := func(req tlul.Request) (tlul.Response, error) {
			tx, err := ctrl.Issue(req)
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 20 && !tx.IsDone(); i++ {
				Expect(clk.RunCycles(1)).To(Succeed())
			}

			Expect(tx.IsDone()).To(BeTrue())

			return tx.Result()
		}

		put := func(address, data, mask uint64) error {
			_, err := do(tlul.PutReqBuilder{}.
				WithAddress(address).
				WithSize(2).
				WithData(data).
				WithMask(mask).
				WithFullMask(0xF).
				Build())

			return err
		}

		get := func(address uint64) (uint64, error) {
			rsp, err := do(tlul.GetReqBuilder{}.
				WithAddress(address).
				WithSize(2).
				WithMask(0xF).
				Build())

			return rsp.Data, err
		}

		BeforeEach(func() {
			clk = clock.MakeBuilder().Build("Clock")
			dev = MakeBuilder().
				WithLayout(layout).
				WithClock(clk).
				WithNewStorage(0x100).
				WithBaseAddress(0x1000).
				Build("Mem")
			ctrl = host.MakeBuilder().
				WithLayout(layout).
				WithBus(dev).
				WithClock(clk).
				Build("Host").
				Controller()

			Expect(clk.RunCycles(5)).To(Succeed())
		})

		It("should read back a written word", func() {
			Expect(put(0x1004, 0xDEADBEEF, 0xF)).To(Succeed())

			data, err := get(0x1004)

			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal(uint64(0xDEADBEEF)))
			Expect(ctrl.State()).To(Equal(host.StateIdle))
		})

		It("should store words little-endian", func() {
			Expect(put(0x1000, 0xAABBCCDD, 0xF)).To(Succeed())

			b, err := dev.Storage().Read(0, 4)

			Expect(err).NotTo(HaveOccurred())
			Expect(b).To(Equal([]byte{0xDD, 0xCC, 0xBB, 0xAA}))
		})

		It("should only write masked lanes", func() {
			Expect(put(0x1000, 0xAABBCCDD, 0xF)).To(Succeed())
			Expect(put(0x1000, 0x00001100, 0x2)).To(Succeed())

			data, err := get(0x1000)

			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal(uint64(0xAABB11DD)))
		})

		It("should answer out-of-range addresses with an error", func() {
			_, err := get(0x2000)

			var busErr *tlul.BusError
			Expect(errors.As(err, &busErr)).To(BeTrue())
			Expect(busErr.Address).To(Equal(uint64(0x2000)))

			_, err = get(0x0)
			Expect(errors.As(err, &busErr)).To(BeTrue())
		})

		It("should keep serving after an error", func() {
			_, err := get(0x2000)
			Expect(err).To(HaveOccurred())

			Expect(put(0x10FC, 0x55, 0xF)).To(Succeed())
			data, err := get(0x10FC)

			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal(uint64(0x55)))
			Expect(dev.Served()).To(Equal(uint64(3)))
		})
	})
})
