package tlul

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Layout", func() {
	It("should build the default layout", func() {
		l := DefaultLayout()

		Expect(l.HostToDevice().Total()).To(Equal(102))
		Expect(l.DeviceToHost().Total()).To(Equal(56))
		Expect(l.H2DBytes()).To(Equal(16))
		Expect(l.D2HBytes()).To(Equal(8))
		Expect(l.DataBytes()).To(Equal(4))
		Expect(l.FullMask()).To(Equal(uint64(0xF)))
		Expect(l.MaxSize()).To(Equal(uint8(2)))
	})

	It("should accept matching expected totals", func() {
		_, err := MakeLayoutBuilder().WithExpectedTotals(102, 56).Build()

		Expect(err).NotTo(HaveOccurred())
	})

	It("should reject a mismatched expected total", func() {
		_, err := MakeLayoutBuilder().WithExpectedTotals(104, 0).Build()

		var cfgErr *ConfigurationError
		Expect(errors.As(err, &cfgErr)).To(BeTrue())
		Expect(cfgErr.Direction).To(Equal(DirHostToDevice))
	})

	It("should reject a non-positive width", func() {
		t := DefaultParams().HostToDevice()
		t[8].Width = 0

		_, err := MakeLayoutBuilder().WithHostToDevice(t).Build()

		var cfgErr *ConfigurationError
		Expect(errors.As(err, &cfgErr)).To(BeTrue())
		Expect(cfgErr.Field).To(Equal(AUser))
	})

	It("should reject signals out of order", func() {
		t := DefaultParams().DeviceToHost()
		t[0], t[1] = t[1], t[0]

		_, err := MakeLayoutBuilder().WithDeviceToHost(t).Build()

		var cfgErr *ConfigurationError
		Expect(errors.As(err, &cfgErr)).To(BeTrue())
		Expect(cfgErr.Direction).To(Equal(DirDeviceToHost))
	})

	It("should reject a changed fixed width", func() {
		t := DefaultParams().HostToDevice()
		t[1].Width = 4

		_, err := MakeLayoutBuilder().WithHostToDevice(t).Build()

		var cfgErr *ConfigurationError
		Expect(errors.As(err, &cfgErr)).To(BeTrue())
		Expect(cfgErr.Field).To(Equal(AOpcodeF))
	})

	It("should reject a mask that does not match the data width", func() {
		p := DefaultParams()
		t := p.HostToDevice()
		t[6].Width = 8

		_, err := MakeLayoutBuilder().WithHostToDevice(t).Build()

		var cfgErr *ConfigurationError
		Expect(errors.As(err, &cfgErr)).To(BeTrue())
		Expect(cfgErr.Field).To(Equal(AMask))
	})

	It("should reject mismatched source widths", func() {
		p := DefaultParams()
		t := p.DeviceToHost()
		t[4].Width = 6

		_, err := MakeLayoutBuilder().WithDeviceToHost(t).Build()

		var cfgErr *ConfigurationError
		Expect(errors.As(err, &cfgErr)).To(BeTrue())
		Expect(cfgErr.Field).To(Equal(DSource))
	})

	It("should reject a bad word size", func() {
		_, err := MakeLayoutBuilder().WithWordBits(12).Build()

		var cfgErr *ConfigurationError
		Expect(errors.As(err, &cfgErr)).To(BeTrue())
	})

	It("should support a 64-bit bus", func() {
		p := DefaultParams()
		p.DataWidth = 64
		p.AddressWidth = 48

		l, err := MakeLayoutBuilder().WithParams(p).Build()

		Expect(err).NotTo(HaveOccurred())
		Expect(l.FullMask()).To(Equal(uint64(0xFF)))
		Expect(l.MaxSize()).To(Equal(uint8(3)))
		Expect(l.Params().AddressWidth).To(Equal(48))
	})

	It("should report bit ranges", func() {
		l := DefaultLayout()
		ranges := l.HostToDevice().Ranges(l.PaddedBits(l.HostToDevice()))

		Expect(ranges[0]).To(Equal(BitRange{
			Name: AValid, Width: 1, MSB: 127, LSB: 127}))
		Expect(ranges[9]).To(Equal(BitRange{
			Name: DReady, Width: 1, MSB: 26, LSB: 26}))
	})

	Context("when validating requests", func() {
		var l *Layout

		BeforeEach(func() {
			l = DefaultLayout()
		})

		It("should accept a full word get", func() {
			req := GetReqBuilder{}.
				WithAddress(0x10).WithSize(2).WithMask(0xF).Build()

			Expect(l.ValidateRequest(req)).To(Succeed())
		})

		It("should reject a misaligned address", func() {
			req := GetReqBuilder{}.
				WithAddress(0x12).WithSize(2).WithMask(0xF).Build()

			var reqErr *RequestError
			Expect(errors.As(l.ValidateRequest(req), &reqErr)).To(BeTrue())
		})

		It("should reject a get that does not cover its lanes", func() {
			req := GetReqBuilder{}.
				WithAddress(0x10).WithSize(2).WithMask(0x3).Build()

			var reqErr *RequestError
			Expect(errors.As(l.ValidateRequest(req), &reqErr)).To(BeTrue())
		})

		It("should reject a size wider than the bus", func() {
			req := GetReqBuilder{}.
				WithAddress(0x10).WithSize(3).WithMask(0xF).Build()

			var reqErr *RequestError
			Expect(errors.As(l.ValidateRequest(req), &reqErr)).To(BeTrue())
		})

		It("should accept a byte write on its lane", func() {
			req := PutReqBuilder{}.
				WithAddress(0x6).WithSize(0).WithMask(0x4).
				WithFullMask(0x4).WithData(0xAB0000).Build()

			Expect(req.Opcode).To(Equal(PutFullData))
			Expect(l.ValidateRequest(req)).To(Succeed())
		})

		It("should reject a full write on the wrong lanes", func() {
			req := Request{
				Opcode: PutFullData, Size: 1, Address: 0x2, Mask: 0x3,
			}

			var reqErr *RequestError
			Expect(errors.As(l.ValidateRequest(req), &reqErr)).To(BeTrue())
		})

		It("should reject an empty partial write", func() {
			req := Request{Opcode: PutPartialData, Size: 2, Mask: 0}

			var reqErr *RequestError
			Expect(errors.As(l.ValidateRequest(req), &reqErr)).To(BeTrue())
		})

		It("should reject an unknown opcode", func() {
			req := Request{Opcode: AOpcode(7), Mask: 0xF}

			var reqErr *RequestError
			Expect(errors.As(l.ValidateRequest(req), &reqErr)).To(BeTrue())
		})
	})
})
