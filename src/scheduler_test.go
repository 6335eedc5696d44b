package skysched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanGroupTotalScoreSumsMembers(t *testing.T) {
	a := NewCandidateScan(1, ScanStandard, []int{1})
	a.score = 2.5
	b := NewCandidateScan(2, ScanStandard, []int{2})
	b.score = 1.5

	g := scanGroup{a, b}
	assert.Equal(t, 4.0, g.totalScore())
}

func TestScanGroupMinSourceIDAcrossMembers(t *testing.T) {
	a := NewCandidateScan(5, ScanStandard, []int{1})
	b := NewCandidateScan(2, ScanStandard, []int{2})

	g := scanGroup{a, b}
	assert.Equal(t, 2, g.minSourceID())
}

func TestScanGroupMaxEndOfObservingAcrossMembers(t *testing.T) {
	a := NewCandidateScan(1, ScanStandard, []int{1})
	a.times[1] = StationScanTimes{EndObserving: 100}
	b := NewCandidateScan(2, ScanStandard, []int{2})
	b.times[2] = StationScanTimes{EndObserving: 300}

	g := scanGroup{a, b}
	assert.Equal(t, 300, g.maxEndOfObserving())
}

func TestPickBestHigherTotalScoreWins(t *testing.T) {
	low := NewCandidateScan(1, ScanStandard, []int{1})
	low.score = 1.0
	high := NewCandidateScan(2, ScanStandard, []int{1})
	high.score = 2.0

	best := pickBest([]scanGroup{{low}, {high}})
	assert.Same(t, high, best[0])
}

func TestPickBestTiesBreakByMinSourceID(t *testing.T) {
	a := NewCandidateScan(5, ScanStandard, []int{1})
	a.score = 1.0
	b := NewCandidateScan(3, ScanStandard, []int{1})
	b.score = 1.0

	best := pickBest([]scanGroup{{a}, {b}})
	assert.Same(t, b, best[0])
}

func TestPickBestTiesBreakByEarlierEndOfObserving(t *testing.T) {
	a := NewCandidateScan(1, ScanStandard, []int{1})
	a.score = 1.0
	a.times[1] = StationScanTimes{EndObserving: 500}
	b := NewCandidateScan(1, ScanStandard, []int{2})
	b.score = 1.0
	b.times[2] = StationScanTimes{EndObserving: 200}

	best := pickBest([]scanGroup{{a}, {b}})
	assert.Same(t, b, best[0])
}

func TestAdvanceTimeUsesEarliestPostobAdjustedEnd(t *testing.T) {
	a := scanTestStation(t, 1, "Alpha", Vec3{6378137, 0, 0}, StationParameters{Available: true, PostobTime: 10}, Equipment{})
	net, err := NewNetwork([]*Station{a})
	require.NoError(t, err)
	src, err := NewQuasarSource(1, "3C84", "", 0, 0, Flux{}, SourceParameters{}, nil)
	require.NoError(t, err)
	sources, err := NewSourceList([]*Source{src})
	require.NoError(t, err)
	baselines, err := NewBaselineSet(nil)
	require.NoError(t, err)

	sch := NewScheduler(net, sources, baselines, Mode{}, Session{}, nil, WeightFactors{}, nil)
	a.SetPointing(PointingVector{StationID: 1, T: 100})

	assert.Equal(t, 110, sch.advanceTime(50, 60))
}

func TestAdvanceTimeFallsBackToQuantumWhenNothingAdvances(t *testing.T) {
	a := scanTestStation(t, 1, "Alpha", Vec3{6378137, 0, 0}, StationParameters{Available: true, PostobTime: 10}, Equipment{})
	net, err := NewNetwork([]*Station{a})
	require.NoError(t, err)
	src, err := NewQuasarSource(1, "3C84", "", 0, 0, Flux{}, SourceParameters{}, nil)
	require.NoError(t, err)
	sources, err := NewSourceList([]*Source{src})
	require.NoError(t, err)
	baselines, err := NewBaselineSet(nil)
	require.NoError(t, err)

	sch := NewScheduler(net, sources, baselines, Mode{}, Session{}, nil, WeightFactors{}, nil)
	a.SetPointing(PointingVector{StationID: 1, T: 100})

	// end = 100+10 = 110, which is not after current(150), so it's
	// ineligible and advanceTime falls back to current+quantum.
	assert.Equal(t, 210, sch.advanceTime(150, 60))
}

func TestAdvanceTimeFallsBackToQuantumWithoutAnyPointing(t *testing.T) {
	a := scanTestStation(t, 1, "Alpha", Vec3{6378137, 0, 0}, StationParameters{Available: true}, Equipment{})
	net, err := NewNetwork([]*Station{a})
	require.NoError(t, err)
	src, err := NewQuasarSource(1, "3C84", "", 0, 0, Flux{}, SourceParameters{}, nil)
	require.NoError(t, err)
	sources, err := NewSourceList([]*Source{src})
	require.NoError(t, err)
	baselines, err := NewBaselineSet(nil)
	require.NoError(t, err)

	sch := NewScheduler(net, sources, baselines, Mode{}, Session{}, nil, WeightFactors{}, nil)

	assert.Equal(t, 160, sch.advanceTime(100, 60))
}

func TestCommitGroupUpdatesStatsAndSourceState(t *testing.T) {
	a := scanTestStation(t, 1, "Alpha", Vec3{6378137, 0, 0}, StationParameters{Available: true}, Equipment{})
	net, err := NewNetwork([]*Station{a})
	require.NoError(t, err)
	src, err := NewQuasarSource(1, "3C84", "", 0, 0, Flux{}, SourceParameters{}, nil)
	require.NoError(t, err)
	sources, err := NewSourceList([]*Source{src})
	require.NoError(t, err)
	baselines, err := NewBaselineSet(nil)
	require.NoError(t, err)

	sch := NewScheduler(net, sources, baselines, Mode{}, Session{}, nil, WeightFactors{}, nil)

	scan := NewCandidateScan(1, ScanStandard, []int{1})
	scan.state = ScanScored
	scan.score = 5.0

	sch.commitGroup(scanGroup{scan}, 100)

	assert.Equal(t, 1, sch.stats.ScansCommitted)
	state := sch.sourceState[1]
	assert.True(t, state.HasScanned)
	assert.Equal(t, 100, state.LastScanTime)
	assert.Equal(t, 1, state.NumScans)
	assert.Equal(t, ScanCommitted, scan.State())
}

func TestScoreContextDefaultsForFreshCatalog(t *testing.T) {
	a := scanTestStation(t, 1, "Alpha", Vec3{6378137, 0, 0}, StationParameters{Available: true}, Equipment{})
	net, err := NewNetwork([]*Station{a})
	require.NoError(t, err)
	src, err := NewQuasarSource(1, "3C84", "", 0, 0, Flux{}, SourceParameters{Weight: 2.0}, nil)
	require.NoError(t, err)
	sources, err := NewSourceList([]*Source{src})
	require.NoError(t, err)
	baselines, err := NewBaselineSet(nil)
	require.NoError(t, err)

	sch := NewScheduler(net, sources, baselines, Mode{}, Session{}, nil, WeightFactors{WObs: 1}, nil)
	ctx := sch.scoreContext()

	assert.Equal(t, 1, ctx.NStaMax)
	assert.Equal(t, 1, ctx.NObsMax)
	assert.Equal(t, 1.0, ctx.AvgSourceScore[1])
	assert.Equal(t, 2.0, ctx.SourceWeight[1])
	assert.False(t, ctx.TryToFocusActive[1])
}

func TestScoreContextReflectsPriorScansAndFocus(t *testing.T) {
	a := scanTestStation(t, 1, "Alpha", Vec3{6378137, 0, 0}, StationParameters{Available: true}, Equipment{})
	net, err := NewNetwork([]*Station{a})
	require.NoError(t, err)
	src, err := NewQuasarSource(1, "3C84", "", 0, 0, Flux{}, SourceParameters{}, nil)
	require.NoError(t, err)
	src.RecordScan(0, 30)
	sources, err := NewSourceList([]*Source{src})
	require.NoError(t, err)
	baselines, err := NewBaselineSet(nil)
	require.NoError(t, err)

	sch := NewScheduler(net, sources, baselines, Mode{}, Session{}, nil, WeightFactors{WObs: 1}, nil)
	sch.sourceState[1] = SourceSchedulingState{HasScanned: true, LastScanTime: 0, NumScans: 1}

	ctx := sch.scoreContext()

	assert.Equal(t, 2, ctx.NObsMax)
	assert.Equal(t, 1.0, ctx.AvgSourceScore[1])
	assert.True(t, ctx.TryToFocusActive[1])
}

func TestScoreContextHonorsTryToFocusOccurrence(t *testing.T) {
	a := scanTestStation(t, 1, "Alpha", Vec3{6378137, 0, 0}, StationParameters{Available: true}, Equipment{})
	net, err := NewNetwork([]*Station{a})
	require.NoError(t, err)
	src, err := NewQuasarSource(1, "3C84", "", 0, 0, Flux{}, SourceParameters{TryToFocusOccurrence: 2}, nil)
	require.NoError(t, err)
	sources, err := NewSourceList([]*Source{src})
	require.NoError(t, err)
	baselines, err := NewBaselineSet(nil)
	require.NoError(t, err)

	sch := NewScheduler(net, sources, baselines, Mode{}, Session{}, nil, WeightFactors{}, nil)

	// scanned once: occurrence 2 not yet reached, stays inactive even
	// though HasScanned is true.
	sch.sourceState[1] = SourceSchedulingState{HasScanned: true, NumScans: 1}
	assert.False(t, sch.scoreContext().TryToFocusActive[1])

	sch.sourceState[1] = SourceSchedulingState{HasScanned: true, NumScans: 2}
	assert.True(t, sch.scoreContext().TryToFocusActive[1])
}

func TestScoreContextWiresCustomSequenceFromCurrentBucket(t *testing.T) {
	a := scanTestStation(t, 1, "Alpha", Vec3{6378137, 0, 0}, StationParameters{Available: true}, Equipment{})
	net, err := NewNetwork([]*Station{a})
	require.NoError(t, err)
	src, err := NewQuasarSource(1, "3C84", "", 0, 0, Flux{}, SourceParameters{}, nil)
	require.NoError(t, err)
	sources, err := NewSourceList([]*Source{src})
	require.NoError(t, err)
	baselines, err := NewBaselineSet(nil)
	require.NoError(t, err)

	session := Session{CustomSequence: CustomScanSequence{Cadence: 2, TargetSources: map[int][]int{0: {1}, 1: {}}}}
	sch := NewScheduler(net, sources, baselines, Mode{}, session, nil, WeightFactors{}, nil)

	ctx := sch.scoreContext()
	assert.True(t, ctx.CustomSequenceActive)
	assert.True(t, ctx.CustomSequenceTarget[1])

	scan := NewCandidateScan(1, ScanStandard, []int{1})
	scan.state = ScanScored
	scan.score = 5.0
	sch.commitGroup(scanGroup{scan}, 0)

	// bucket advanced to 1, whose target list excludes source 1.
	ctx = sch.scoreContext()
	assert.False(t, ctx.CustomSequenceTarget[1])
}

func TestCustomScanSequenceEnabled(t *testing.T) {
	assert.False(t, CustomScanSequence{}.Enabled())
	assert.True(t, CustomScanSequence{Cadence: 3}.Enabled())
}
