package store

import (
	"time"

	"gorm.io/gorm"

	"tokenwatch/internal/model"
)

// TokenContract mirrors model.TokenContract with resolved address strings,
// the shape returned by the public read contract.
type TokenContract struct {
	Address         string
	DeployerAddress string
	DeploymentBlock uint64
	DeploymentTime  time.Time
	Standard        model.TokenStandard
}

// AddToken inserts a new watched token. Idempotent on address.
func (s *Store) AddToken(tc TokenContract) error {
	return s.withWrite(func(tx *gorm.DB) error {
		addrID, err := resolveAddress(tx, tc.Address)
		if err != nil {
			return err
		}
		var existing model.TokenContract
		if err := tx.First(&existing, "address_id = ?", addrID).Error; err == nil {
			return nil // idempotent
		} else if err != gorm.ErrRecordNotFound {
			return err
		}
		deployerID, err := resolveAddress(tx, tc.DeployerAddress)
		if err != nil {
			return err
		}
		row := model.TokenContract{
			AddressID:         addrID,
			DeployerAddressID: deployerID,
			DeploymentBlock:   tc.DeploymentBlock,
			DeploymentTime:    tc.DeploymentTime,
			Standard:          tc.Standard,
		}
		return tx.Create(&row).Error
	})
}

// Tokens returns every currently watched token contract.
func (s *Store) Tokens() ([]TokenContract, error) {
	var rows []model.TokenContract
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]TokenContract, 0, len(rows))
	for _, r := range rows {
		addr, err := s.AddressHex(r.AddressID)
		if err != nil {
			continue
		}
		deployer, err := s.AddressHex(r.DeployerAddressID)
		if err != nil {
			continue
		}
		out = append(out, TokenContract{
			Address:         addr,
			DeployerAddress: deployer,
			DeploymentBlock: r.DeploymentBlock,
			DeploymentTime:  r.DeploymentTime,
			Standard:        r.Standard,
		})
	}
	return out, nil
}

// Token looks up a single watched token by address.
func (s *Store) Token(address string) (*TokenContract, bool, error) {
	addrID, err := s.ResolveAddressID(nil, address)
	if err != nil {
		return nil, false, err
	}
	var row model.TokenContract
	if err := s.db.First(&row, "address_id = ?", addrID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	deployer, err := s.AddressHex(row.DeployerAddressID)
	if err != nil {
		return nil, false, err
	}
	return &TokenContract{
		Address:         model.NormalizeAddress(address),
		DeployerAddress: deployer,
		DeploymentBlock: row.DeploymentBlock,
		DeploymentTime:  row.DeploymentTime,
		Standard:        row.Standard,
	}, true, nil
}

// TokensByDeployer returns the watched tokens deployed by deployer, used by
// the TooManyTokenCreations detector's sliding-window scan.
func (s *Store) TokensByDeployer(deployer string) ([]TokenContract, error) {
	deployerID, err := s.ResolveAddressID(nil, deployer)
	if err != nil {
		return nil, err
	}
	var rows []model.TokenContract
	if err := s.db.Where("deployer_address_id = ?", deployerID).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]TokenContract, 0, len(rows))
	for _, r := range rows {
		addr, err := s.AddressHex(r.AddressID)
		if err != nil {
			continue
		}
		out = append(out, TokenContract{
			Address:         addr,
			DeployerAddress: deployer,
			DeploymentBlock: r.DeploymentBlock,
			DeploymentTime:  r.DeploymentTime,
			Standard:        r.Standard,
		})
	}
	return out, nil
}
