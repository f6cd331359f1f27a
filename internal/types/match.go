package types

// Technique identifies the measurement technique a spectrum was acquired with.
// Searches only consider reference spectra of the same technique.
type Technique uint32

const (
	TechniqueFTIR         Technique = 0x00000001
	TechniqueATRIR        Technique = 0x00000002
	TechniqueRaman        Technique = 0x00000003
	TechniqueVaporPhaseIR Technique = 0x00000004
	TechniqueMS           Technique = 0x00000005
)

func (t Technique) String() string {
	switch t {
	case TechniqueFTIR:
		return "ftir"
	case TechniqueATRIR:
		return "atr-ir"
	case TechniqueRaman:
		return "raman"
	case TechniqueVaporPhaseIR:
		return "vapor-phase-ir"
	case TechniqueMS:
		return "ms"
	default:
		return "unknown"
	}
}

// ParseTechnique maps a technique name (as used on the CLI) to its constant.
func ParseTechnique(s string) (Technique, bool) {
	switch s {
	case "ftir":
		return TechniqueFTIR, true
	case "atr-ir":
		return TechniqueATRIR, true
	case "raman":
		return TechniqueRaman, true
	case "vapor-phase-ir":
		return TechniqueVaporPhaseIR, true
	case "ms":
		return TechniqueMS, true
	}
	return 0, false
}

// XUnit identifies the unit of the X (frequency) axis.
type XUnit uint16

const (
	XUnitWavenumbers XUnit = 0x0001
	XUnitNanometers  XUnit = 0x0002
	XUnitMOverZ      XUnit = 0x0003
)

// YUnit identifies the unit of the Y (intensity) axis.
type YUnit uint16

const (
	YUnitArbitraryIntensity YUnit = 0x0001
	YUnitAbsorbance         YUnit = 0x0002
	YUnitTransmittance      YUnit = 0x0003
)

// MatchFlag is a bit field describing what kind of search produced a result
// and, for mixture searches, the role the entry plays in the decomposition.
type MatchFlag uint32

const (
	// MatchFlagSpectralSearchResult marks a full-spectrum search result.
	MatchFlagSpectralSearchResult MatchFlag = 0x00000001
	// MatchFlagPeakSearchResult marks a peak search result.
	MatchFlagPeakSearchResult MatchFlag = 0x00000002
	// MatchFlagComposite marks the weighted-sum entry of a mixture search.
	MatchFlagComposite MatchFlag = 0x00000004
	// MatchFlagResidual marks the unexplained remainder of a mixture search.
	MatchFlagResidual MatchFlag = 0x00000008
	// MatchFlagComponent marks an individual contributing entry of a mixture search.
	MatchFlagComponent MatchFlag = 0x00000010
	// MatchFlagLocked marks a match from a database the caller is not licensed to use.
	MatchFlagLocked MatchFlag = 0x00000020
)

// Match is one candidate library entry returned through the SDK surface.
//
// Percentage uses the in-process convention of 0-100. The result transfer
// wire format uses 0-1 instead; the two conventions are historical and are
// kept per interface rather than reconciled. The relay divides
// by 100 when encoding.
type Match struct {
	// Percentage is the match quality from 0 to 100.
	Percentage float64
	// Name is the name of the matched library record.
	Name string
	// Locked is true when the match comes from an unlicensed database.
	Locked bool
}

// SearchResult is the full result shape the engine produces: a Match plus
// the flag bits and mixture component weight carried by the wire format.
type SearchResult struct {
	Flags MatchFlag
	Match
	// ComponentWeight is 0-1 and only meaningful for mixture component
	// and residual entries.
	ComponentWeight float64
	// SpectrumID is the library ID of the matched spectrum, empty for
	// synthetic entries (composite, residual).
	SpectrumID string
}
