package sealevel

const (
	CUStakeProgramDefaultComputeUnits = 750
)
