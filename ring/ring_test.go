package ring

import (
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/joshuapare/memkit/hooking"
	"github.com/joshuapare/memkit/pkg/types"
)

var _ = Describe("Ring buffer", func() {
	var r *Buffer[int]

	BeforeEach(func() {
		var err error
		r, err = New[int](4)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should reject non-positive capacity", func() {
		_, err := New[int](0)
		Expect(errors.Is(err, types.ErrInvalidArgument)).To(BeTrue())
		_, err = New[string](-3)
		Expect(errors.Is(err, types.ErrInvalidArgument)).To(BeTrue())
	})

	It("should count overflow and keep FIFO order", func() {
		for i := 1; i <= 4; i++ {
			Expect(r.Write(i)).To(BeTrue())
		}
		Expect(r.IsFull()).To(BeTrue())
		Expect(r.Write(5)).To(BeFalse())
		Expect(r.OverflowCount()).To(Equal(int64(1)))

		for i := 1; i <= 4; i++ {
			v, ok := r.Read()
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal(i))
		}
		Expect(r.IsEmpty()).To(BeTrue())
	})

	It("should count underflow", func() {
		v, ok := r.Read()
		Expect(ok).To(BeFalse())
		Expect(v).To(BeZero())
		Expect(r.UnderflowCount()).To(Equal(int64(1)))

		r.ResetCounters()
		Expect(r.UnderflowCount()).To(BeZero())
	})

	It("should keep order across wraparound", func() {
		for i := range 3 {
			r.Write(i)
		}
		r.Read()
		r.Read()
		for i := 3; i < 6; i++ {
			Expect(r.Write(i)).To(BeTrue())
		}
		Expect(r.ToArray()).To(Equal([]int{2, 3, 4, 5}))

		var got []int
		for !r.IsEmpty() {
			v, _ := r.Read()
			got = append(got, v)
		}
		Expect(got).To(Equal([]int{2, 3, 4, 5}))
	})

	It("should peek without consuming", func() {
		_, ok := r.Peek()
		Expect(ok).To(BeFalse())
		Expect(r.UnderflowCount()).To(BeZero())

		r.Write(9)
		v, ok := r.Peek()
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(9))
		Expect(r.Count()).To(Equal(1))
	})

	It("should transfer partially in bulk", func() {
		Expect(r.WriteMany([]int{1, 2, 3, 4, 5, 6})).To(Equal(4))
		Expect(r.OverflowCount()).To(BeZero())
		Expect(r.Available()).To(BeZero())

		dst := make([]int, 3)
		Expect(r.ReadMany(dst)).To(Equal(3))
		Expect(dst).To(Equal([]int{1, 2, 3}))

		dst = make([]int, 5)
		Expect(r.ReadMany(dst)).To(Equal(1))
		Expect(dst[0]).To(Equal(4))
		Expect(r.UnderflowCount()).To(BeZero())
	})

	It("should clear contents but keep capacity", func() {
		r.WriteMany([]int{1, 2, 3})
		r.Clear()
		Expect(r.Count()).To(BeZero())
		Expect(r.Capacity()).To(Equal(4))
		Expect(r.ToArray()).To(BeEmpty())
	})

	It("should fire overflow and underflow hooks", func() {
		rec := &hooking.Recorder{}
		r.AcceptHook(rec)

		r.Read()
		r.WriteMany([]int{1, 2, 3, 4})
		r.Write(5)

		Expect(rec.Count(HookPosUnderflow)).To(Equal(1))
		Expect(rec.Count(HookPosOverflow)).To(Equal(1))
		Expect(rec.Events()[1].Item).To(Equal(5))
	})

	Context("waiting", func() {
		It("should return at once when the condition already holds", func() {
			Expect(r.WaitForSpace(0)).To(BeTrue())
			Expect(r.WaitForData(0)).To(BeFalse())
			r.Write(1)
			Expect(r.WaitForData(0)).To(BeTrue())
		})

		It("should time out", func() {
			start := time.Now()
			Expect(r.WaitForData(20 * time.Millisecond)).To(BeFalse())
			Expect(time.Since(start)).To(BeNumerically(">=", 20*time.Millisecond))
		})

		It("should wake a reader when data arrives", func() {
			done := make(chan bool, 1)
			go func() {
				defer GinkgoRecover()
				done <- r.WaitForData(-1)
			}()

			Consistently(done, 20*time.Millisecond).ShouldNot(Receive())
			r.Write(1)
			Eventually(done, time.Second).Should(Receive(BeTrue()))
		})

		It("should wake a writer when space frees up", func() {
			r.WriteMany([]int{1, 2, 3, 4})
			done := make(chan bool, 1)
			go func() {
				defer GinkgoRecover()
				done <- r.WaitForSpace(time.Second)
			}()

			r.Read()
			Eventually(done, time.Second).Should(Receive(BeTrue()))
		})

		It("should release waiters on close", func() {
			done := make(chan bool, 1)
			go func() {
				defer GinkgoRecover()
				done <- r.WaitForData(-1)
			}()

			Consistently(done, 10*time.Millisecond).ShouldNot(Receive())
			Expect(r.Close()).To(Succeed())
			Eventually(done, time.Second).Should(Receive(BeFalse()))
		})

		It("should release a timed space waiter on close", func() {
			r.WriteMany([]int{1, 2, 3, 4})
			done := make(chan bool, 1)
			go func() {
				defer GinkgoRecover()
				done <- r.WaitForSpace(time.Second)
			}()

			Consistently(done, 10*time.Millisecond).ShouldNot(Receive())
			Expect(r.Close()).To(Succeed())
			Eventually(done, time.Second).Should(Receive(BeFalse()))
		})
	})

	It("should deliver every item once under a producer and consumer", func() {
		const n = 2000
		var (
			wg  sync.WaitGroup
			got []int
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < n; {
				if r.Write(i) {
					i++
					continue
				}
				r.WaitForSpace(-1)
			}
		}()
		go func() {
			defer wg.Done()
			for len(got) < n {
				if v, ok := r.Read(); ok {
					got = append(got, v)
					continue
				}
				r.WaitForData(-1)
			}
		}()
		wg.Wait()

		Expect(got).To(HaveLen(n))
		for i, v := range got {
			Expect(v).To(Equal(i))
		}
	})

	It("should panic with a disposed error after close", func() {
		Expect(r.Close()).To(Succeed())
		Expect(r.Close()).To(Succeed())
		Expect(func() { r.Write(1) }).To(PanicWith(MatchError(types.ErrDisposed)))
		Expect(func() { r.Count() }).To(Panic())
		Expect(func() { r.WaitForData(0) }).To(PanicWith(MatchError(types.ErrDisposed)))
		Expect(func() { r.WaitForSpace(time.Millisecond) }).To(PanicWith(MatchError(types.ErrDisposed)))
	})
})
