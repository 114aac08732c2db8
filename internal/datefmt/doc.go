// Package datefmt implements the calendar-letter date grammar shared by the
// %d pattern converter and the rollover file-name analyzer.
//
// Letters follow the familiar SimpleDateFormat set:
//
//	G era          y year        Y week year   M month        w week of year
//	W week/month   D day of year d day         F weekday/month E weekday name
//	u weekday 1-7  a AM/PM       H hour 0-23   k hour 1-24    K hour 0-11
//	h hour 1-12    m minute      s second      S millisecond  z zone name
//	Z -0700        X ISO offset
//
// Text in single quotes is literal; '' is a single quote.
package datefmt
