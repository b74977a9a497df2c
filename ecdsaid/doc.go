/*
Package ecdsaid implements identity contract based on raw ECDSA signatures.

ECDSA identity contract binds an account to a P-384 public key. Account
identifier is '<key>.<contract>' where contract is the name of the deployed
contract and key is either an arbitrary user name or the hex-encoded public
key itself.

To register, the user signs the registration challenge of the application
('<app> Registration') and submits Register action with the public key and
the signature. Contract stores SHA-256 of the public key with zero nonce.

To prove control of the account, the user signs

	verify <nonce>[ <contract> <hex data>]...

built from the current nonce and all other blobs of the same transaction, and
submits Verify action. Signature is thus bound to the particular batch of
co-submitted operations and cannot be reused. Successful verification
increments the nonce. Verification with another valid key of the same curve
reports failure without an error.

# Actions encoding

Actions are encoded with the canonical encoding of the internal/proto package.
Variant tag 1 is Register{1: account, 2: public key, 3: signature}, tag 2 is
Verify{1: account, 2: nonce, 3: public key, 4: signature}. Public key is a
hex-encoded SEC1 point (compressed or not), signature is a hex-encoded DER
sequence of r and s over SHA-384 of the message.
*/
package ecdsaid
