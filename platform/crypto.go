package platform

import (
	"crypto/hmac"
	"crypto/sha256"
	"hash"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"

	"github.com/edgelet/hostbridge/errors"
	"github.com/edgelet/hostbridge/hostval"
)

// CryptoEngine exposes digests, HMAC, and UUID generation as a host
// object. Algorithm names follow the WebCrypto spelling.
type CryptoEngine struct{}

func NewCryptoEngine() *CryptoEngine {
	return &CryptoEngine{}
}

func newHash(algorithm string) (func() hash.Hash, error) {
	switch algorithm {
	case "SHA-256":
		return sha256.New, nil
	case "SHA3-256":
		return sha3.New256, nil
	case "BLAKE2B-256":
		return func() hash.Hash {
			h, _ := blake2b.New256(nil)
			return h
		}, nil
	default:
		return nil, errors.NotFound(errors.PhaseCall, "digest algorithm", algorithm)
	}
}

func (e *CryptoEngine) Digest(algorithm string, data []byte) ([]byte, error) {
	newFn, err := newHash(algorithm)
	if err != nil {
		return nil, err
	}
	h := newFn()
	h.Write(data)
	return h.Sum(nil), nil
}

func (e *CryptoEngine) HMAC(algorithm string, key, data []byte) ([]byte, error) {
	newFn, err := newHash(algorithm)
	if err != nil {
		return nil, err
	}
	mac := hmac.New(newFn, key)
	mac.Write(data)
	return mac.Sum(nil), nil
}

func (e *CryptoEngine) RandomUUID() string {
	return uuid.NewString()
}

// Object materializes the engine as a host object with digest, hmac and
// randomUUID function members.
func (e *CryptoEngine) Object() *hostval.Object {
	obj := hostval.NewObject()
	obj.Set("digest", &hostval.Function{
		Name: "digest",
		Impl: func(_ any, args []any) (any, error) {
			alg, data, err := algAndData("digest", args, 1)
			if err != nil {
				return nil, err
			}
			sum, err := e.Digest(alg, data)
			if err != nil {
				return nil, err
			}
			return hostval.Bytes(sum), nil
		},
	})
	obj.Set("hmac", &hostval.Function{
		Name: "hmac",
		Impl: func(_ any, args []any) (any, error) {
			if len(args) < 3 {
				return nil, errors.InvalidInput(errors.PhaseCall, "hmac needs algorithm, key and data")
			}
			alg, ok := args[0].(string)
			if !ok {
				return nil, errors.TypeMismatch(errors.PhaseCall, hostval.TypeName(args[0]), "algorithm string")
			}
			key, ok := args[1].(hostval.Bytes)
			if !ok {
				return nil, errors.TypeMismatch(errors.PhaseCall, hostval.TypeName(args[1]), "key bytes")
			}
			data, ok := args[2].(hostval.Bytes)
			if !ok {
				return nil, errors.TypeMismatch(errors.PhaseCall, hostval.TypeName(args[2]), "data bytes")
			}
			sum, err := e.HMAC(alg, key, data)
			if err != nil {
				return nil, err
			}
			return hostval.Bytes(sum), nil
		},
	})
	obj.Set("randomUUID", &hostval.Function{
		Name: "randomUUID",
		Impl: func(_ any, _ []any) (any, error) {
			return uuid.NewString(), nil
		},
	})
	return obj
}

func algAndData(op string, args []any, dataIdx int) (string, []byte, error) {
	if len(args) <= dataIdx {
		return "", nil, errors.InvalidInput(errors.PhaseCall, op+" needs algorithm and data")
	}
	alg, ok := args[0].(string)
	if !ok {
		return "", nil, errors.TypeMismatch(errors.PhaseCall, hostval.TypeName(args[0]), "algorithm string")
	}
	data, ok := args[dataIdx].(hostval.Bytes)
	if !ok {
		return "", nil, errors.TypeMismatch(errors.PhaseCall, hostval.TypeName(args[dataIdx]), "data bytes")
	}
	return alg, data, nil
}
