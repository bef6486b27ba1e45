package eth

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	walleterr "github.com/tidewallet/tide/pkg/errors"
)

// ERC-20 transfer selector: keccak256("transfer(address,uint256)")[0:4]
//
//nolint:gochecknoglobals // protocol constant
var erc20TransferSelector = []byte{0xa9, 0x05, 0x9c, 0xbb}

// TxParams describes an unsigned transaction.
type TxParams struct {
	From         string   // sender address
	To           string   // recipient, or token contract for ERC-20
	Value        *big.Int // value in wei, zero for ERC-20 transfers
	GasLimit     uint64
	GasPrice     *big.Int // in wei
	Nonce        uint64
	ChainID      *big.Int
	Data         []byte // call data for contract interactions
	TokenAddress string // ERC-20 contract, empty for native transfers
}

// Validate checks the parameters are complete enough to sign.
func (p *TxParams) Validate() error {
	if !IsValidAddress(p.From) {
		return walleterr.WithDetails(walleterr.ErrInvalidAddress, map[string]string{
			"field": "from", "address": p.From,
		})
	}
	if !IsValidAddress(p.To) {
		return walleterr.WithDetails(walleterr.ErrInvalidAddress, map[string]string{
			"field": "to", "address": p.To,
		})
	}
	if p.Value == nil {
		return walleterr.Wrap(walleterr.ErrInvalidAmount, "value is nil")
	}
	if p.Value.Sign() < 0 {
		return walleterr.Wrap(walleterr.ErrInvalidAmount, "value is negative")
	}
	if p.Value.BitLen() > 256 {
		return walleterr.Wrap(walleterr.ErrInvalidAmount, "value exceeds uint256")
	}
	if p.GasPrice == nil || p.GasPrice.Sign() <= 0 {
		return walleterr.Wrap(walleterr.ErrValidation, "gas price must be positive")
	}
	if p.GasLimit == 0 {
		return walleterr.Wrap(walleterr.ErrValidation, "gas limit must be positive")
	}
	if p.ChainID == nil || p.ChainID.Sign() <= 0 {
		return walleterr.Wrap(walleterr.ErrValidation, "chain ID must be positive")
	}
	return nil
}

// NewTransferParams describes a native ETH transfer.
func NewTransferParams(from, to string, value *big.Int) *TxParams {
	return &TxParams{
		From:  from,
		To:    to,
		Value: value,
	}
}

// NewTokenTransferParams describes an ERC-20 transfer. The transaction
// goes to the token contract with zero value; the recipient and amount
// ride in the call data.
func NewTokenTransferParams(from, recipient, tokenAddress string, amount *big.Int) (*TxParams, error) {
	data, err := BuildERC20TransferData(recipient, amount)
	if err != nil {
		return nil, err
	}
	return &TxParams{
		From:         from,
		To:           tokenAddress,
		Value:        big.NewInt(0),
		Data:         data,
		TokenAddress: tokenAddress,
	}, nil
}

// BuildERC20TransferData encodes transfer(address,uint256) call data.
// The amount must fit a uint256 word.
func BuildERC20TransferData(to string, amount *big.Int) ([]byte, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, walleterr.Wrap(walleterr.ErrInvalidAmount, "amount must be non-negative")
	}
	if amount.BitLen() > 256 {
		return nil, walleterr.Wrap(walleterr.ErrInvalidAmount, "amount exceeds uint256")
	}

	data := make([]byte, 68) // 4-byte selector + two 32-byte words
	copy(data[:4], erc20TransferSelector)

	toAddr := common.HexToAddress(to)
	copy(data[16:36], toAddr.Bytes())

	amountBytes := amount.Bytes()
	copy(data[68-len(amountBytes):68], amountBytes)

	return data, nil
}

// BuildTransaction assembles an unsigned legacy transaction.
func BuildTransaction(params *TxParams) (*types.Transaction, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	toAddr := common.HexToAddress(params.To)
	return types.NewTx(&types.LegacyTx{
		Nonce:    params.Nonce,
		To:       &toAddr,
		Value:    params.Value,
		Gas:      params.GasLimit,
		GasPrice: params.GasPrice,
		Data:     params.Data,
	}), nil
}

// SignTransaction signs with EIP-155 replay protection.
// The private key bytes are zeroed before return on every path.
func SignTransaction(tx *types.Transaction, privateKey []byte, chainID *big.Int) (*types.Transaction, error) {
	defer ZeroPrivateKey(privateKey)

	key, err := crypto.ToECDSA(privateKey)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}

	signer := types.NewEIP155Signer(chainID)
	signedTx, err := types.SignTx(tx, signer, key)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}

	return signedTx, nil
}

// ZeroPrivateKey zeros a private key byte slice.
func ZeroPrivateKey(key []byte) {
	for i := range key {
		key[i] = 0
	}
}

// DeriveAddress returns the checksummed address behind a private key.
func DeriveAddress(privateKey []byte) (string, error) {
	key, err := crypto.ToECDSA(privateKey)
	if err != nil {
		return "", fmt.Errorf("parsing private key: %w", err)
	}
	return crypto.PubkeyToAddress(key.PublicKey).Hex(), nil
}
