// Package document models shared text documents with operational
// transformation.
//
// Every edit names the document version its editor had applied. The decider
// transforms the op across versions the editor missed, clamps it to the
// current content and records the result, so the journal holds exactly the
// ops that were applied and replay reproduces the content byte for byte.
// Transformation rules are spelled out on Transform.
package document
