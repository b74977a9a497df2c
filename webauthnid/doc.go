/*
Package webauthnid implements identity contract based on WebAuthn credentials.

WebAuthn identity contract binds an account to a P-256 credential of the
platform or roaming authenticator. Challenges are never issued by the
contract: the authenticator signs the challenge derived from the message,
see Challenge. On registration the message is the registration challenge of
the application, on verification it is

	verify <nonce>[ <contract> <hex data>]...

built from the current nonce and all other blobs of the same transaction.

Assertion is accepted if authenticator data reports the user presence, client
data has the expected ceremony type and challenge and the signature over
authenticator data and client data hash is correct. RP ID hash and origin are
checked only when the contract is configured with them.

# Actions encoding

Variant tag 1 is Register{1: account, 2: credential ID, 3: public key,
4: assertion}, tag 2 is Verify{1: account, 2: nonce, 3: credential ID,
4: public key, 5: assertion}. Assertion is {1: authenticator data,
2: client data JSON, 3: signature}.
*/
package webauthnid
