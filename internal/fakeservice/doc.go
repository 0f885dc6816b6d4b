// Package fakeservice is a scripted conversation service for development and
// end-to-end tests.
//
// It speaks the same /chat and /health contract as the real service and
// answers from keyword rules instead of language models:
//
//	appointment, hospital, doctor   scheduling agent, hospital cards
//	lab, test, checkup, blood       lab_test agent, lab cards for the named city
//	prescription                    pharmacy agent, prescription cards
//	medicine, tablet, order, buy    pharmacy agent, medicine cards
//	fever, cough, pain, ...         symptom agent, text and suggested replies
//	hi, hello, hey                  orchestrator, quick reply cards
//
// Card picks are routed by the card_data type: a hospital books an
// appointment, and a lab leads to visit types, then test packages, then a lab
// booking confirmation. Both confirmations set "confirmed": true.
//
// The service keeps no conversation state. A message containing FailPhrase
// gets a 500 reply.
package fakeservice
