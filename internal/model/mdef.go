package model

import "fmt"

// MemMdef is a small, in-memory [MdefTable] suitable for tests and for
// wrapping a parsed model-definition file (the parser itself stays
// out-of-scope per spec.md §6; this is the contract it must populate).
type MemMdef struct {
	ciNames []string
	ciSSID  []SSID // ssid for the bare CI phone (context-free) HMM

	triphones map[Triphone]SSID
	senones   [][]SenoneID
	tmat      []int32
	numSenone int
}

// NewMemMdef creates an mdef table for numCI context-independent phones.
// Each CI phone's context-free ssid is registered automatically;
// triphone-specific ssids are added with AddTriphone.
func NewMemMdef(ciNames []string, statesPerPhone int) *MemMdef {
	m := &MemMdef{
		ciNames:   append([]string(nil), ciNames...),
		ciSSID:    make([]SSID, len(ciNames)),
		triphones: make(map[Triphone]SSID),
	}
	for i := range ciNames {
		ssid := m.addSenoneSeq(statesPerPhone, 0)
		m.ciSSID[i] = ssid
	}
	return m
}

func (m *MemMdef) addSenoneSeq(numStates int, tmatID int32) SSID {
	ssid := SSID(len(m.senones))
	seq := make([]SenoneID, numStates)
	for i := range seq {
		seq[i] = SenoneID(m.numSenone)
		m.numSenone++
	}
	m.senones = append(m.senones, seq)
	m.tmat = append(m.tmat, tmatID)
	return ssid
}

// AddTriphone registers a triphone-specific ssid sharing numStates senones
// (freshly allocated, i.e. not tied to the CI ssid — a real model ties many
// triphones to few senones; for tests each triphone gets its own states
// unless shareSSID is non-negative, in which case it is tied there).
func (m *MemMdef) AddTriphone(t Triphone, numStates int, shareSSID SSID) SSID {
	var ssid SSID
	if shareSSID >= 0 {
		ssid = shareSSID
	} else {
		ssid = m.addSenoneSeq(numStates, 0)
	}
	m.triphones[t] = ssid
	return ssid
}

func (m *MemMdef) NumCIPhones() int { return len(m.ciNames) }

func (m *MemMdef) CIPhoneName(p CIPhoneID) string {
	if int(p) < 0 || int(p) >= len(m.ciNames) {
		return fmt.Sprintf("?%d", p)
	}
	return m.ciNames[p]
}

func (m *MemMdef) LookupCI(p CIPhoneID) SSID {
	if int(p) < 0 || int(p) >= len(m.ciSSID) {
		return -1
	}
	return m.ciSSID[p]
}

func (m *MemMdef) Lookup(t Triphone) (SSID, bool) {
	ssid, ok := m.triphones[t]
	if ok {
		return ssid, true
	}
	return m.LookupCI(t.Base), false
}

func (m *MemMdef) Senones(s SSID) []SenoneID {
	if int(s) < 0 || int(s) >= len(m.senones) {
		return nil
	}
	return m.senones[s]
}

func (m *MemMdef) TransitionMatrix(s SSID) int32 {
	if int(s) < 0 || int(s) >= len(m.tmat) {
		return 0
	}
	return m.tmat[s]
}

func (m *MemMdef) NumSenones() int { return m.numSenone }
