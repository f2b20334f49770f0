package replay

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attributionHub/internal/coordinator"
	"attributionHub/internal/model"
	"attributionHub/internal/project"
)

const (
	adminHex   = "0xad00000000000000000000000000000000000001"
	aliceHex   = "0xa11ce00000000000000000000000000000000004"
	tokenHex   = "0x1111111111111111111111111111111111111111"
	projectHex = "0x00000000000000000000000000000000000000aa"
)

type acceptAll struct{}

func (acceptAll) Classify(context.Context, common.Address) (model.TokenType, error) {
	return model.TokenTypeFungible, nil
}

func newReplay(t *testing.T, checkpoint string) (*Runner, *coordinator.Coordinator, *project.Passthrough) {
	t.Helper()
	directory := project.NewDirectory()
	backend := project.NewPassthrough()
	require.NoError(t, directory.Register(common.HexToAddress(projectHex), backend))

	clock := &Clock{}
	c, err := coordinator.New(coordinator.Options{
		Classifier:    acceptAll{},
		Projects:      directory,
		Clock:         clock.Now,
		ClaimCooldown: time.Second,
		Fees:          model.FeeSchedule{FeeCollector: common.HexToAddress(adminHex)},
		Timing:        model.RemovalTiming{Cooldown: time.Hour, Window: time.Hour},
	})
	require.NoError(t, err)
	require.NoError(t, c.Bootstrap(context.Background(), coordinator.InitialRoles{
		Admins:      []common.Address{common.HexToAddress(adminHex)},
		Attributors: []common.Address{common.HexToAddress(adminHex)},
	}))

	runner := NewRunner(RunConfig{CheckpointPath: checkpoint, CheckpointEnabled: checkpoint != ""}, c, clock, nil)
	return runner, c, backend
}

func claimLine(seconds string, amount string) string {
	return `{"op":"claim","caller":"` + aliceHex + `","time":` + seconds +
		`,"checks":[{"project":"` + projectHex + `","currency":"` + tokenHex + `","unit_ids":["1"],"amounts":["` + amount + `"]}]}`
}

var scenario = strings.Join([]string{
	`{"op":"register_currency","caller":"` + adminHex + `","time":"1700000000","currency":"` + tokenHex + `","amount":"100"}`,
	claimLine("1700000000", "60"),
	claimLine("1700000000.5", "50"),
	claimLine("1700000001.5", "50"),
	`{"op":"attribute","caller":"` + adminHex + `","time":"2023-11-14T22:13:22Z","batch":[{"project":"` + projectHex + `","records":["0x01","0x0203"]}]}`,
	`not json`,
	`{"op":"teleport","caller":"` + adminHex + `","time":1700000002}`,
	`{"op":"pause","caller":"` + adminHex + `"}`,
	``,
	`{"op":"set_protocol_fee_rate","caller":"` + adminHex + `","time":1700000003,"rate":250}`,
}, "\n")

func TestRunReplaysScenario(t *testing.T) {
	requireT := require.New(t)
	assertT := assert.New(t)

	runner, c, backend := newReplay(t, "")
	summary, err := runner.Run(context.Background(), strings.NewReader(scenario))
	requireT.NoError(err)

	assertT.Equal(uint64(10), summary.Lines)
	assertT.Equal(5, summary.Applied)
	assertT.Equal(4, summary.Failed)

	entry, err := c.GetCurrency(common.HexToAddress(tokenHex))
	requireT.NoError(err)
	assertT.Equal(uint64(50), entry.CumulativeClaimed.Uint64())
	assertT.True(time.Unix(1_700_000_001, 500_000_000).Equal(entry.WindowStartedAt))
	assertT.Equal(uint64(110), c.ClaimedByUser(common.HexToAddress(aliceHex), common.HexToAddress(tokenHex)).Uint64())
	assertT.Equal(2, backend.Attributed())
	assertT.Equal(uint64(250), c.GetFeeSchedule().ProtocolFeeRate)
}

func TestRunResumesFromCheckpoint(t *testing.T) {
	requireT := require.New(t)
	path := filepath.Join(t.TempDir(), "checkpoint.json")

	runner, _, _ := newReplay(t, path)
	first := strings.Join(strings.Split(scenario, "\n")[:2], "\n")
	summary, err := runner.Run(context.Background(), strings.NewReader(first))
	requireT.NoError(err)
	requireT.Equal(2, summary.Applied)

	cp, ok, err := NewCheckpointStore(path, true).Load()
	requireT.NoError(err)
	requireT.True(ok)
	requireT.Equal(uint64(2), cp.LastLine)
	requireT.Equal(uint64(3), cp.Sequence)

	summary, err = runner.Run(context.Background(), strings.NewReader(scenario))
	requireT.NoError(err)
	requireT.Equal(2, summary.Skipped)
	requireT.Equal(3, summary.Applied)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	runner, _, _ := newReplay(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx, strings.NewReader(scenario))
	require.ErrorIs(t, err, context.Canceled)
}

var ledgerScenario = []string{
	`{"op":"register_currency","caller":"` + adminHex + `","time":1700000000,"currency":"` + tokenHex + `","amount":"100"}`,
	claimLine("1700000000", "10"),
	claimLine("1700000001", "20"),
	claimLine("1700000002", "30"),
}

func TestCheckpointResumeAfter(t *testing.T) {
	cp := Checkpoint{LastLine: 7, Sequence: 4}
	testCases := []struct {
		name     string
		sequence uint64
		want     uint64
		wantErr  string
	}{
		{name: "in step", sequence: 4, want: 7},
		{name: "line persisted before checkpoint", sequence: 5, want: 8},
		{name: "state behind", sequence: 3, wantErr: "behind"},
		{name: "state far ahead", sequence: 6, wantErr: "ahead"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := cp.ResumeAfter(tc.sequence)
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRunSkipsLinePersistedBeforeCheckpoint(t *testing.T) {
	requireT := require.New(t)
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	ctx := context.Background()

	runner, c, _ := newReplay(t, path)
	_, err := runner.Run(ctx, strings.NewReader(strings.Join(ledgerScenario[:2], "\n")))
	requireT.NoError(err)

	// line 3 reaches the store but the process stops before its checkpoint
	unchecked := NewRunner(RunConfig{}, c, runner.clock, nil)
	summary, err := unchecked.Run(ctx, strings.NewReader(ledgerScenario[2]))
	requireT.NoError(err)
	requireT.Equal(1, summary.Applied)

	summary, err = runner.Run(ctx, strings.NewReader(strings.Join(ledgerScenario, "\n")))
	requireT.NoError(err)
	requireT.Equal(3, summary.Skipped)
	requireT.Equal(1, summary.Applied)
	requireT.Equal(uint64(60), c.ClaimedByUser(common.HexToAddress(aliceHex), common.HexToAddress(tokenHex)).Uint64())

	cp, _, err := NewCheckpointStore(path, true).Load()
	requireT.NoError(err)
	requireT.Equal(uint64(4), cp.LastLine)
	requireT.Equal(c.Sequence(), cp.Sequence)
}

func TestRunRefusesStateBehindCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	runner, _, _ := newReplay(t, path)
	_, err := runner.Run(context.Background(), strings.NewReader(strings.Join(ledgerScenario[:2], "\n")))
	require.NoError(t, err)

	fresh, c, _ := newReplay(t, path)
	_, err = fresh.Run(context.Background(), strings.NewReader(strings.Join(ledgerScenario, "\n")))
	require.ErrorContains(t, err, "behind")
	require.False(t, c.IsCurrencyAccepted(common.HexToAddress(tokenHex)))
}

// cancellingProject cancels the replay while a claim is being settled.
type cancellingProject struct {
	cancel context.CancelFunc
}

func (p cancellingProject) Attribute(context.Context, coordinator.Session, [][]byte, common.Address) error {
	return nil
}

func (p cancellingProject) SettleClaim(ctx context.Context, _ coordinator.Session, _, _ common.Address, _, _ []*uint256.Int) (model.Settlement, error) {
	p.cancel()
	return model.Settlement{}, ctx.Err()
}

func TestRunKeepsCheckpointWhenCancelledMidOperation(t *testing.T) {
	requireT := require.New(t)
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	directory := project.NewDirectory()
	requireT.NoError(directory.Register(common.HexToAddress(projectHex), cancellingProject{cancel: cancel}))
	clock := &Clock{}
	c, err := coordinator.New(coordinator.Options{
		Classifier:    acceptAll{},
		Projects:      directory,
		Clock:         clock.Now,
		ClaimCooldown: time.Second,
	})
	requireT.NoError(err)
	requireT.NoError(c.Bootstrap(ctx, coordinator.InitialRoles{Admins: []common.Address{common.HexToAddress(adminHex)}}))

	runner := NewRunner(RunConfig{CheckpointPath: path, CheckpointEnabled: true}, c, clock, nil)
	summary, err := runner.Run(ctx, strings.NewReader(strings.Join(ledgerScenario[:2], "\n")))
	requireT.ErrorIs(err, context.Canceled)
	requireT.Equal(1, summary.Applied)
	requireT.Zero(summary.Failed)

	cp, ok, err := NewCheckpointStore(path, true).Load()
	requireT.NoError(err)
	requireT.True(ok)
	requireT.Equal(uint64(1), cp.LastLine)
	requireT.Equal(c.Sequence(), cp.Sequence)
}

func TestApplyRejectsBadInput(t *testing.T) {
	_, c, _ := newReplay(t, "")
	ctx := context.Background()

	err := Apply(ctx, c, Operation{Op: "pause", Caller: "nobody"})
	require.ErrorIs(t, err, model.ErrInvalidArgument)

	err = Apply(ctx, c, Operation{Op: "grant_role", Caller: adminHex, Role: "owner", Account: aliceHex})
	require.ErrorIs(t, err, model.ErrInvalidArgument)

	err = Apply(ctx, c, Operation{Op: "set_claim_cooldown", Caller: adminHex, Duration: "soon"})
	require.ErrorContains(t, err, "duration")

	require.NoError(t, Apply(ctx, c, Operation{Op: "grant_role", Caller: adminHex, Role: "pauser", Account: aliceHex}))
	require.True(t, c.HasRole(model.RolePauser, common.HexToAddress(aliceHex)))
}
