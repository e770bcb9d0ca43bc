package authority

import (
	"context"
	"encoding/binary"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/solana"
)

type fakeRPC struct {
	accounts map[string]*solana.AccountInfo
	supplies map[string]uint64
	largest  map[string][]solana.TokenBalance
}

func (f *fakeRPC) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	return f.accounts[pubkey], nil
}

func (f *fakeRPC) GetTokenLargestAccounts(_ context.Context, mint string) ([]solana.TokenBalance, error) {
	return f.largest[mint], nil
}

func (f *fakeRPC) GetTokenSupply(_ context.Context, mint string) (*solana.TokenAmount, error) {
	return &solana.TokenAmount{Amount: f.supplies[mint], Decimals: 9}, nil
}

func (f *fakeRPC) GetSignaturesForAddress(_ context.Context, _ string, _ *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	return nil, nil
}

func (f *fakeRPC) GetTransaction(_ context.Context, _ string) (*solana.Transaction, error) {
	return nil, nil
}

type staticLPSource string

func (s staticLPSource) LPMint(_ context.Context, _ string) (string, error) {
	return string(s), nil
}

// mintData builds raw SPL mint bytes. Option flags control whether the
// authorities are set.
func mintData(mintAuth, freezeAuth bool) []byte {
	data := make([]byte, 82)
	if mintAuth {
		binary.LittleEndian.PutUint32(data[0:4], 1)
		data[4] = 0xAA
	}
	binary.LittleEndian.PutUint64(data[36:44], 1_000_000)
	data[44] = 9
	data[45] = 1
	if freezeAuth {
		binary.LittleEndian.PutUint32(data[46:50], 1)
		data[50] = 0xBB
	}
	return data
}

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l.WithField("test", true)
}

func TestDetect_LiveAuthoritiesFlagged(t *testing.T) {
	rpc := &fakeRPC{accounts: map[string]*solana.AccountInfo{
		"mint": {Data: mintData(true, true)},
	}}
	d := NewDetector(rpc, nil, quietLog())

	result, err := d.Detect(context.Background(), &domain.AnalysisRequest{TokenAddress: "mint"}, &domain.AnalysisOptions{})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if result.ScoreContribution != -55 {
		t.Errorf("contribution = %f, want -55", result.ScoreContribution)
	}

	codes := map[string]bool{}
	for _, f := range result.RedFlags {
		codes[f.Code] = true
		if f.Severity != 3 {
			t.Errorf("flag %s severity = %d, want 3", f.Code, f.Severity)
		}
	}
	if !codes[domain.FlagMintAuthority] || !codes[domain.FlagFreezeAuthority] {
		t.Errorf("missing authority flags, got %+v", result.RedFlags)
	}

	ev := result.Evidence.(Evidence)
	if ev.MintRevoked || ev.FreezeRevoked {
		t.Errorf("evidence = %+v, want both authorities live", ev)
	}
}

func TestDetect_RevokedAuthoritiesClean(t *testing.T) {
	rpc := &fakeRPC{accounts: map[string]*solana.AccountInfo{
		"mint": {Data: mintData(false, false)},
	}}
	d := NewDetector(rpc, nil, quietLog())

	result, err := d.Detect(context.Background(), &domain.AnalysisRequest{TokenAddress: "mint"}, &domain.AnalysisOptions{})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if result.ScoreContribution != 15 {
		t.Errorf("contribution = %f, want 15", result.ScoreContribution)
	}
	if len(result.RedFlags) != 0 {
		t.Errorf("unexpected flags: %+v", result.RedFlags)
	}
}

func TestDetect_LPBurned(t *testing.T) {
	rpc := &fakeRPC{
		accounts: map[string]*solana.AccountInfo{
			"mint": {Data: mintData(false, false)},
		},
		supplies: map[string]uint64{"lpmint": 1_000_000},
		largest: map[string][]solana.TokenBalance{
			"lpmint": {
				{Address: "1nc1nerator11111111111111111111111111111111", Amount: 950_000},
				{Address: "someholder", Amount: 50_000},
			},
		},
	}
	d := NewDetector(rpc, staticLPSource("lpmint"), quietLog())

	result, err := d.Detect(context.Background(), &domain.AnalysisRequest{TokenAddress: "mint"}, &domain.AnalysisOptions{})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	ev := result.Evidence.(Evidence)
	if !ev.LPChecked || ev.LPBurnedPercent != 95 {
		t.Errorf("LP evidence = %+v, want 95%% burned", ev)
	}
	if len(result.RedFlags) != 0 {
		t.Errorf("unexpected flags for burned LP: %+v", result.RedFlags)
	}
	if result.ScoreContribution != 25 {
		t.Errorf("contribution = %f, want 25", result.ScoreContribution)
	}
}

func TestDetect_LPUnlocked(t *testing.T) {
	rpc := &fakeRPC{
		accounts: map[string]*solana.AccountInfo{
			"mint": {Data: mintData(false, false)},
		},
		supplies: map[string]uint64{"lpmint": 1_000_000},
		largest: map[string][]solana.TokenBalance{
			"lpmint": {{Address: "devwallet", Amount: 1_000_000}},
		},
	}
	d := NewDetector(rpc, staticLPSource("lpmint"), quietLog())

	result, err := d.Detect(context.Background(), &domain.AnalysisRequest{TokenAddress: "mint"}, &domain.AnalysisOptions{})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	var found *domain.RedFlag
	for i := range result.RedFlags {
		if result.RedFlags[i].Code == domain.FlagLPUnlocked {
			found = &result.RedFlags[i]
		}
	}
	if found == nil {
		t.Fatalf("missing LP-unlocked flag, got %+v", result.RedFlags)
	}
	if found.Severity != 3 {
		t.Errorf("severity = %d, want 3 for 0%% burned", found.Severity)
	}
}

func TestDetect_MissingMintAccount(t *testing.T) {
	d := NewDetector(&fakeRPC{accounts: map[string]*solana.AccountInfo{}}, nil, quietLog())

	_, err := d.Detect(context.Background(), &domain.AnalysisRequest{TokenAddress: "missing"}, &domain.AnalysisOptions{})
	if err == nil {
		t.Fatal("expected error for missing mint account")
	}
	if domain.ClassifyError(err) != domain.ErrKindUpstreamMalformed {
		t.Errorf("error kind = %s, want upstream-malformed", domain.ClassifyError(err))
	}
}
