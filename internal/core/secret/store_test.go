package secret

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func TestIssueAndConsume(t *testing.T) {
	st := NewStore(time.Minute)

	issued := st.Issue()
	if issued.Hash == (common.Hash{}) {
		t.Fatal("issued commitment hash is zero")
	}
	if st.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", st.Len())
	}

	value, legitimate := st.Consume(issued.Hash)
	if !legitimate {
		t.Error("consuming a live secret reported legitimate=false")
	}
	if crypto.Keccak256Hash(value[:]) != issued.Hash {
		t.Error("consumed value does not hash to the issued commitment")
	}
	if st.Len() != 0 {
		t.Errorf("Len() = %d after consume, want 0", st.Len())
	}
}

func TestConsumeIsSingleUse(t *testing.T) {
	st := NewStore(time.Minute)
	issued := st.Issue()

	first, legitimate := st.Consume(issued.Hash)
	if !legitimate {
		t.Fatal("first consume reported legitimate=false")
	}

	second, legitimate := st.Consume(issued.Hash)
	if legitimate {
		t.Error("second consume of the same commitment reported legitimate=true")
	}
	if second == first {
		t.Error("substitute secret equals the consumed secret")
	}
}

func TestConsumeUnknownCommitment(t *testing.T) {
	st := NewStore(time.Minute)

	value, legitimate := st.Consume(common.HexToHash("0xdead"))
	if legitimate {
		t.Error("unknown commitment reported legitimate=true")
	}
	if value == (common.Hash{}) {
		t.Error("substitute secret is zero")
	}

	// Substitutes are fresh randomness, not a fixed fallback.
	again, _ := st.Consume(common.HexToHash("0xdead"))
	if again == value {
		t.Error("two substitutes for the same commitment are identical")
	}
}

func TestAutoDispose(t *testing.T) {
	st := NewStore(10 * time.Millisecond)
	issued := st.Issue()

	deadline := time.Now().Add(2 * time.Second)
	for st.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("secret was not disposed after its TTL")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, legitimate := st.Consume(issued.Hash); legitimate {
		t.Error("disposed secret was consumed as legitimate")
	}
}

func TestIssuedSecretsAreDistinct(t *testing.T) {
	st := NewStore(time.Minute)
	seen := make(map[common.Hash]bool)
	for i := 0; i < 100; i++ {
		issued := st.Issue()
		if seen[issued.Hash] {
			t.Fatalf("duplicate commitment on issue %d", i)
		}
		seen[issued.Hash] = true
	}
	if st.Len() != 100 {
		t.Errorf("Len() = %d, want 100", st.Len())
	}
}
