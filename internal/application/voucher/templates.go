package voucher

// voucherTemplate is the single HTML layout for both voucher kinds. The
// watermark overlay sits on its own absolutely positioned layer so toggling
// it never reflows the accounting content underneath.
const voucherTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>
  body { font-family: Helvetica, Arial, sans-serif; font-size: 10pt; color: #000; margin: 0; }
  .page { position: relative; padding: 8px; }
  .header { text-align: center; margin-bottom: 14px; }
  .header h1 { font-size: 12pt; margin: 0 0 4px 0; }
  .header p { margin: 2px 0; }
  .doc-meta { text-align: right; margin-bottom: 10px; }
  table { border-collapse: collapse; width: 100%; margin-bottom: 14px; }
  td, th { border: 1px solid #000; padding: 5px; font-size: 9pt; text-align: left; vertical-align: top; }
  th { font-weight: bold; }
  .label { width: 110px; font-weight: bold; }
  .num { text-align: right; }
  .words { font-style: italic; margin: 10px 0; }
  .watermark {
    position: absolute;
    top: 45%;
    left: 50%;
    transform: translate(-50%, -50%) rotate(-30deg);
    font-size: 90px;
    font-weight: bold;
    color: red;
    opacity: 0.15;
    z-index: 10;
    pointer-events: none;
    white-space: nowrap;
  }
</style>
</head>
<body>
<div class="page">
  {{if .Voided}}<div class="watermark">ANULADO</div>{{end}}

  <div class="header">
    <h1>{{.Org.Name}}</h1>
    <p>NIT: {{.Org.TaxID}}</p>
    <p>{{.Org.City}} – Tel: {{.Org.Phone}}</p>
  </div>

  <div class="doc-meta">
    <p>{{.Title}}</p>
    <p>Fecha: {{.Date}}</p>
  </div>

  <table>
    <tr><td class="label">{{if .IsExpense}}Proveedor{{else}}Entidad{{end}}</td><td>{{.CounterpartyName}}</td></tr>
    <tr><td class="label">Identificación</td><td>{{.CounterpartyID}}</td></tr>
    <tr><td class="label">Teléfono</td><td>{{.Phone}}</td></tr>
    <tr><td class="label">Cuenta</td><td>{{.AccountLine}}</td></tr>
    <tr><td class="label">Convenio</td><td>{{.Agreement}}</td></tr>
  </table>

  <table>
    <tr><td class="label">Concepto</td><td>{{.Concept}}</td></tr>
    <tr><td class="label">Observación</td><td>{{.Description}}</td></tr>
  </table>

  <p class="words">LA SUMA DE (EN LETRAS): {{.AmountInWords}}</p>

  {{if .IsExpense}}
  <table>
    <tr>
      <th>CÓDIGOS</th><th>CUENTAS</th><th>PARCIALES</th><th>DÉBITOS</th><th>CRÉDITOS</th>
    </tr>
    {{range .Rows}}
    <tr>
      <td>{{.Code}}</td>
      <td>{{.Account}}</td>
      <td class="num">{{.Partial}}</td>
      <td class="num">{{.Debit}}</td>
      <td class="num">{{.Credit}}</td>
    </tr>
    {{end}}
  </table>
  {{else}}
  <table>
    <tr><th>VALOR BRUTO</th><th>IMPUESTO</th><th>VALOR NETO</th></tr>
    <tr>
      <td class="num">{{.Gross}}</td>
      <td class="num">{{.Tax}}</td>
      <td class="num">{{.Net}}</td>
    </tr>
  </table>
  {{end}}

  <table>
    <tr><td class="label">Firma beneficiario</td><td></td></tr>
    <tr><td class="label">Beneficiario</td><td>{{.CounterpartyName}}</td></tr>
    <tr><td class="label">CC. o NIT</td><td>{{.CounterpartyID}}</td></tr>
  </table>
</div>
</body>
</html>`
