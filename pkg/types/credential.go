package types

import "time"

// Credential holds one user's encrypted secret material for one cloud
// provider. At most one active record exists per (user_id, provider);
// upserts replace the secret in place. All *_Enc fields are ciphertext
// produced by the process-wide sealed box and are opaque until
// decryption at ingestion time.
//
// Plaintext layout is provider-specific:
//   - aws:   access key in AccessKeyEnc, secret key in SecretKeyEnc
//   - gcp:   service-account JSON in ExtraJSONEnc
//   - azure: tenant/client/secret/subscription JSON in ExtraJSONEnc
type Credential struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	Provider     Provider  `db:"provider" json:"provider"`
	AccessKeyEnc string    `db:"access_key_enc" json:"-"`
	SecretKeyEnc string    `db:"secret_key_enc" json:"-"`
	ExtraJSONEnc string    `db:"extra_json_enc" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
