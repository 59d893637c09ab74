package lock

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pgregory.net/rapid"
)

func accountIDGen() *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		return fmt.Sprintf("tg:%d", rapid.Int64Range(1, 1000000).Draw(t, "tgID"))
	})
}

// TestConcurrentBalanceSafetyProperty: concurrent read-modify-write cycles on
// the same account under Lock give the sequential result.
func TestConcurrentBalanceSafetyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initialBalance := rapid.Int64Range(1000, 100000).Draw(t, "initialBalance")
		numOps := rapid.IntRange(2, 20).Draw(t, "numOps")

		amounts := make([]int64, numOps)
		expected := initialBalance
		for i := range amounts {
			amounts[i] = rapid.Int64Range(-500, 500).Draw(t, "amount")
			expected += amounts[i]
		}

		accountID := accountIDGen().Draw(t, "accountID")
		al := NewAccountLock()
		balance := initialBalance

		var wg sync.WaitGroup
		wg.Add(numOps)
		for _, amount := range amounts {
			go func(amount int64) {
				defer wg.Done()
				al.Lock(accountID)
				defer al.Unlock(accountID)
				balance += amount
			}(amount)
		}
		wg.Wait()

		if balance != expected {
			t.Fatalf("Balance mismatch with locking: expected %d, got %d", expected, balance)
		}
	})
}

// TestPairTransfersConserveTotalProperty: opposite-direction transfers between
// two accounts under LockPair never deadlock and conserve the total.
func TestPairTransfersConserveTotalProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := accountIDGen().Draw(t, "a")
		b := accountIDGen().Filter(func(s string) bool { return s != a }).Draw(t, "b")
		numOps := rapid.IntRange(2, 40).Draw(t, "numOps")

		al := NewAccountLock()
		balances := map[string]int64{a: 1000, b: 1000}

		var wg sync.WaitGroup
		wg.Add(numOps)
		for i := 0; i < numOps; i++ {
			from, to := a, b
			if i%2 == 1 {
				from, to = b, a
			}
			go func(from, to string) {
				defer wg.Done()
				unlock := al.LockPair(from, to)
				defer unlock()
				if balances[from] >= 10 {
					balances[from] -= 10
					balances[to] += 10
				}
			}(from, to)
		}

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("pair transfers deadlocked")
		}

		if total := balances[a] + balances[b]; total != 2000 {
			t.Fatalf("total not conserved: got %d", total)
		}
	})
}

// TestLockPairSameAccountProperty: locking an account against itself does not
// self-deadlock and leaves the lock free afterwards.
func TestLockPairSameAccountProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		id := accountIDGen().Draw(t, "id")
		al := NewAccountLock()

		unlock := al.LockPair(id, id)
		if al.size() != 1 {
			t.Fatalf("expected one tracked account, got %d", al.size())
		}
		unlock()

		if al.size() != 0 {
			t.Fatalf("entry not evicted after unlock, %d tracked", al.size())
		}
		al.Lock(id)
		al.Unlock(id)
	})
}

// TestMultipleAccountsIndependentLocksProperty: locks for different accounts
// are independent.
func TestMultipleAccountsIndependentLocksProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numAccounts := rapid.IntRange(2, 10).Draw(t, "numAccounts")
		opsPerAccount := rapid.IntRange(5, 20).Draw(t, "opsPerAccount")

		al := NewAccountLock()
		balances := make(map[string]*int64, numAccounts)
		for i := 0; i < numAccounts; i++ {
			b := int64(0)
			balances[fmt.Sprintf("acc-%d", i)] = &b
		}

		var wg sync.WaitGroup
		wg.Add(numAccounts * opsPerAccount)
		for id := range balances {
			for j := 0; j < opsPerAccount; j++ {
				go func(id string) {
					defer wg.Done()
					al.Lock(id)
					defer al.Unlock(id)
					*balances[id] += 10
				}(id)
			}
		}
		wg.Wait()

		for id, b := range balances {
			if *b != int64(opsPerAccount)*10 {
				t.Fatalf("%s balance mismatch: expected %d, got %d", id, opsPerAccount*10, *b)
			}
		}
	})
}

// TestEvictionProperty: once every holder and waiter has released, no
// per-account entries remain, and exclusion held throughout.
func TestEvictionProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ids := rapid.SliceOfN(rapid.SampledFrom([]string{"a", "b", "c", "d"}), 1, 50).Draw(t, "ids")

		al := NewAccountLock()
		var inside sync.Map
		var violations atomic.Int32
		var wg sync.WaitGroup
		wg.Add(len(ids))
		for _, id := range ids {
			go func(id string) {
				defer wg.Done()
				al.Lock(id)
				if _, busy := inside.LoadOrStore(id, true); busy {
					violations.Add(1)
				}
				inside.Delete(id)
				al.Unlock(id)
			}(id)
		}
		wg.Wait()

		if violations.Load() != 0 {
			t.Fatalf("%d goroutines held the same account lock at once", violations.Load())
		}
		if al.size() != 0 {
			t.Fatalf("expected all entries evicted, %d tracked", al.size())
		}
	})
}
