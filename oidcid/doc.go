/*
Package oidcid implements identity contract based on OpenID Connect identity
tokens.

OIDC identity contract binds an account to the subject of the identity
provider. The user obtains an ID token (compact RS256 JWT) from the provider
and supplies it as the private input of the transaction. Action payload
carries the expected issuer and audience along with the RSA key of the
provider, see KeyFromJWKS for the key selection.

Token is accepted if its signature is correct, 'iss' claim equals the issuer
and 'aud' claim (string or array) contains the audience. Credential of the
account is '<sub>:<iss>'. Actions may carry attested Unix time the token must
not be expired at; zero value disables the check since the contract never
reads the clock.

# Actions encoding

Variant tag 1 is Register{1: account, 2: context, 3: JWK, 4: valid at}, tag 2
is Verify{1: account, 2: nonce, 3: context, 4: JWK, 5: valid at}, tag 3 is
Info{1: account}. Context is {1: issuer, 2: audience}, JWK is {1: n, 2: e}.
*/
package oidcid
