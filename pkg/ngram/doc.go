/*
Package ngram implements a weighted, directed transition graph over
fixed-length token sequences, and probabilistic generation of new sequences
by random walk over that graph.

A Model of order n records, for every observed n-gram, how often its final
token (the suffix) followed its first n-1 tokens (the prefix). Probabilities
are derived from those counts on demand, and a Model can be sampled one
suffix at a time or walked to produce a whole sequence.

The package is a pure in-memory data structure: it performs no I/O, holds no
locks, and imposes no tokenization policy. Turning raw text into tokens,
persisting a graph, and command-line glue are the business of collaborating
packages; the model only requires that tokens arrive in their canonical
string form.
*/
package ngram
