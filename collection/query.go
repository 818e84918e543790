package collection

import (
	"github.com/bitfsorg/matchfund-go/auth"
	"github.com/bitfsorg/matchfund-go/fund"
	"github.com/bitfsorg/matchfund-go/ledger"
)

func (s *Service) load(key string, v interface{}) error {
	return s.run.View(func(r ledger.Reader) error { return fund.Load(r, key, v) })
}

// Associations returns every pre-calculation record in registration order.
func (s *Service) Associations() ([]fund.Beneficiary, error) {
	var assocs []fund.Beneficiary
	if err := s.load(fund.KeyAssociations, &assocs); err != nil {
		return nil, err
	}
	return assocs, nil
}

// Beneficiaries returns the registered beneficiary identities in order,
// including repeated registrations.
func (s *Service) Beneficiaries() ([]auth.Principal, error) {
	assocs, err := s.Associations()
	if err != nil {
		return nil, err
	}
	out := make([]auth.Principal, len(assocs))
	for i, a := range assocs {
		out[i] = a.Name
	}
	return out, nil
}

// Contributions returns the raw contributions recorded for beneficiary.
// An unregistered beneficiary has no contributions; that is not an error.
func (s *Service) Contributions(beneficiary auth.Principal) ([]int64, error) {
	assocs, err := s.Associations()
	if err != nil {
		return nil, err
	}
	if i := fund.IndexOf(assocs, beneficiary); i >= 0 && assocs[i].Contributions != nil {
		return assocs[i].Contributions, nil
	}
	return []int64{}, nil
}

// State reports whether the deposit window is still open.
func (s *Service) State() (fund.State, error) {
	deadline, err := s.Deadline()
	if err != nil {
		return fund.StateEnded, err
	}
	return fund.StateAt(s.run.Now(), deadline), nil
}

// Deadline returns the current deposit deadline.
func (s *Service) Deadline() (uint64, error) {
	var deadline uint64
	err := s.load(fund.KeyDeadline, &deadline)
	return deadline, err
}

// TotalAmount returns the pooled total.
func (s *Service) TotalAmount() (fund.Amount, error) {
	var total fund.Amount
	err := s.load(fund.KeyTotal, &total)
	return total, err
}

// FinalAllocations returns the allocations of the last calculation.
func (s *Service) FinalAllocations() ([]fund.Allocation, error) {
	var final []fund.Allocation
	if err := s.load(fund.KeyFinalAssociations, &final); err != nil {
		return nil, err
	}
	return final, nil
}

// Claimed reports whether the current cycle's payout happened.
func (s *Service) Claimed() (bool, error) {
	var claimed bool
	err := s.load(fund.KeyClaimed, &claimed)
	return claimed, err
}

// Admin returns the admin principal.
func (s *Service) Admin() (auth.Principal, error) {
	var p auth.Principal
	err := s.load(fund.KeyAdmin, &p)
	return p, err
}

// Asset returns the asset identifier.
func (s *Service) Asset() (auth.Principal, error) {
	var p auth.Principal
	err := s.load(fund.KeyAsset, &p)
	return p, err
}

// Disbursement returns the account that receives the pooled total.
func (s *Service) Disbursement() (auth.Principal, error) {
	var p auth.Principal
	err := s.load(fund.KeyDisbursement, &p)
	return p, err
}
