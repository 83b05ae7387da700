package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sarchlab/tlul/sim/hooking"
	"github.com/sarchlab/tlul/sim/timing"
	"github.com/sarchlab/tlul/tlul"
	"github.com/sarchlab/tlul/tlul/host"
	"go.uber.org/mock/gomock"
)

type sampleComponent struct {
	name    string
	Counter int
}

func (c *sampleComponent) Name() string {
	return c.name
}

func endHook(tx *host.Transaction) hooking.HookCtx {
	return hooking.HookCtx{Pos: host.HookPosTransactionEnd, Item: tx}
}

var _ = Describe("Monitor", func() {
	var (
		mockCtrl *gomock.Controller
		clk      *MockClock
		m        *Monitor
		handler  http.Handler
	)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		return rec
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		clk = NewMockClock(mockCtrl)

		m = NewMonitor()
		m.RegisterClock(clk)
		m.RegisterComponent(&sampleComponent{name: "Host"})
		m.RegisterComponent(&sampleComponent{name: "Device"})
	})

	JustBeforeEach(func() {
		handler = m.Handler()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should pause and continue the clock", func() {
		clk.EXPECT().Pause()
		clk.EXPECT().Continue()

		Expect(get("/api/pause").Code).To(Equal(http.StatusOK))
		Expect(get("/api/continue").Code).To(Equal(http.StatusOK))
	})

	It("should assert reset", func() {
		m.WithResetCycles(3)
		clk.EXPECT().AssertReset(uint64(3))

		Expect(get("/api/reset").Code).To(Equal(http.StatusOK))
	})

	It("should report the time and the cycle", func() {
		clk.EXPECT().Now().Return(timing.VTimeInSec(1.5e-7))
		clk.EXPECT().Cycle().Return(uint64(15))
		clk.EXPECT().InReset().Return(false)

		rec := get("/api/now")

		var rsp nowRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp).To(Equal(nowRsp{Now: 1.5e-7, Cycle: 15}))
	})

	It("should refuse clock requests without a clock", func() {
		m.RegisterClock(nil)
		handler = m.Handler()

		Expect(get("/api/now").Code).To(Equal(http.StatusServiceUnavailable))
	})

	It("should list components", func() {
		rec := get("/api/list_components")

		var names []string
		Expect(json.Unmarshal(rec.Body.Bytes(), &names)).To(Succeed())
		Expect(names).To(Equal([]string{"Host", "Device"}))
	})

	It("should serialize a component", func() {
		Expect(get("/api/component/Device").Code).To(Equal(http.StatusOK))
	})

	It("should report unknown components", func() {
		Expect(get("/api/component/Nope").Code).To(Equal(http.StatusNotFound))
	})

	It("should reject malformed field requests", func() {
		Expect(get("/api/field/notjson").Code).To(Equal(http.StatusBadRequest))
	})

	It("should list recent transactions", func() {
		log := NewTransactionLog(4)
		m.RegisterTransactionLog(log)
		handler = m.Handler()

		log.Func(endHook(&host.Transaction{
			ID:  "1",
			Req: tlul.Request{Opcode: tlul.PutFullData, Address: 0x10, Data: 7},
		}))

		var txs []TransactionSummary
		Expect(json.Unmarshal(get("/api/transactions").Body.Bytes(), &txs)).
			To(Succeed())
		Expect(txs).To(Equal([]TransactionSummary{{
			ID:      "1",
			Opcode:  "PutFullData",
			Address: "0x10",
			Data:    "0x7",
			Outcome: "ok",
		}}))
	})

	It("should list an empty transaction log", func() {
		Expect(get("/api/transactions").Body.String()).To(Equal("[]"))
	})

	It("should list progress bars", func() {
		bar := m.CreateProgressBar("script", 10)
		bar.IncrementInProgress(3)
		bar.MoveInProgressToFinished(2)

		var bars []ProgressBarState
		Expect(json.Unmarshal(get("/api/progress").Body.Bytes(), &bars)).
			To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].Name).To(Equal("script"))
		Expect(bars[0].Finished).To(Equal(uint64(2)))
		Expect(bars[0].InProgress).To(Equal(uint64(1)))

		m.CompleteProgressBar(bar)
		Expect(get("/api/progress").Body.String()).To(Equal("[]"))
	})

	It("should expose metrics", func() {
		reg := prometheus.NewRegistry()
		counter := prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tlul_test_total",
			Help: "test",
		})
		reg.MustRegister(counter)
		counter.Inc()

		m.RegisterGatherer(reg)
		handler = m.Handler()

		rec := get("/metrics")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("tlul_test_total 1"))
	})

	It("should serve the monitoring page", func() {
		rec := get("/")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("TL-UL Monitor"))
	})

	It("should replace privileged ports", func() {
		m.WithPortNumber(80)
		Expect(m.portNumber).To(Equal(0))

		m.WithPortNumber(8080)
		Expect(m.portNumber).To(Equal(8080))
	})
})

var _ = Describe("TransactionLog", func() {
	It("should keep the newest transactions first", func() {
		log := NewTransactionLog(2)

		for _, id := range []string{"a", "b", "c"} {
			log.Func(endHook(&host.Transaction{
				ID:  id,
				Req: tlul.Request{Opcode: tlul.Get},
			}))
		}

		recent := log.Recent()
		Expect(recent).To(HaveLen(2))
		Expect(recent[0].ID).To(Equal("c"))
		Expect(recent[1].ID).To(Equal("b"))
	})

	It("should record read data and errors", func() {
		log := NewTransactionLog(2)

		log.Func(endHook(&host.Transaction{
			Req: tlul.Request{Opcode: tlul.Get},
			Rsp: tlul.Response{Data: 0xAB},
		}))
		log.Func(endHook(&host.Transaction{
			Req: tlul.Request{Opcode: tlul.Get},
			Err: &tlul.TimeoutError{Signal: tlul.SignalDValid, Cycles: 4},
		}))

		recent := log.Recent()
		Expect(recent[0].Outcome).To(Equal("timeout"))
		Expect(recent[0].Data).To(BeEmpty())
		Expect(recent[0].Error).NotTo(BeEmpty())
		Expect(recent[1].Data).To(Equal("0xab"))
	})

	It("should ignore other hook positions", func() {
		log := NewTransactionLog(1)
		log.Func(hooking.HookCtx{Pos: host.HookPosTransactionStart})

		Expect(log.Recent()).To(BeEmpty())
	})
})
