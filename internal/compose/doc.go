// Package compose turns a guidance template plus company facts into a
// personalized application email. Templates are Liquid; the rendered
// guidance is fed to a Bedrock model and the reply is split into subject
// and body on the SUBJECT: marker line.
package compose
