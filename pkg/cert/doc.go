// Package cert manages the controller identity and the paired device
// certificate.
//
// A controller presents one long-lived self-signed RSA certificate to a
// device. After pairing succeeds the device's certificate is stored next
// to the identity and later connections pin it. Both live in a password
// protected PKCS#12 keystore, one per device.
package cert
